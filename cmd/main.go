package main

import (
	"context"
	"errors"
	"os"

	"github.com/avelara/setlist/internal/services"
	"github.com/avelara/setlist/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	if os.Getenv("SETLIST_DEBUG") != "" {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var spotify *services.SpotifyService
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			spotify = svc
		}
	}

	var enricher services.Enricher
	if config.Credentials.LastFM.APIKey != "" {
		if svc, err := services.NewLastFMService(config.Credentials.LastFM.APIKey); err == nil {
			enricher = svc
		}
	}

	var scorer services.Scorer
	if config.Credentials.DeepSeek.APIKey != "" {
		if svc, err := services.NewDeepSeekService(config.Credentials.DeepSeek.APIKey, services.DeepSeekOpts{
			BaseURL: config.Credentials.DeepSeek.BaseURL,
			Model:   config.Credentials.DeepSeek.Model,
			Timeout: config.Credentials.DeepSeek.Timeout(),
		}); err == nil {
			scorer = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Spotify:  spotify,
		Enricher: enricher,
		Scorer:   scorer,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:     "setlist",
		Usage:    "Curate an AI-validated party playlist from your music library",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
