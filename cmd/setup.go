package main

import (
	"context"
	"fmt"
	"os"

	"github.com/avelara/setlist/internal/repositories"
	"github.com/avelara/setlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if needed and initializes the enrichment cache.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		} else {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
	}

	if config.Database.Path == "" {
		r.writePlain("✓ Config ready at %s (no cache database configured)\n", configPath)
		return nil
	}

	r.logger.Info("initializing enrichment cache", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if _, err := repositories.NewEnrichmentRepository(db); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	r.writePlain("✓ Config ready at %s\n", configPath)
	r.writePlain("✓ Enrichment cache ready at %s\n", config.Database.Path)
	r.writePlain("\nNext steps:\n")
	r.writePlain("1. Add your Spotify, Last.fm, and DeepSeek credentials to %s\n", configPath)
	r.writePlain("2. Run 'setlist auth' to connect your Spotify account\n")
	r.writePlain("3. Run 'setlist generate' to build a playlist\n")
	return nil
}

// Check reports which services are configured and which credentials are missing.
func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials

	report := func(label string, ok bool, hint string) {
		if ok {
			r.writePlain("✓ %s configured\n", label)
		} else {
			r.writePlain("✗ %s missing (%s)\n", label, hint)
		}
	}

	report("Spotify credentials", creds.Spotify.ClientID != "" && creds.Spotify.ClientSecret != "", "client_id/client_secret")
	report("Spotify token", creds.Spotify.AccessToken != "", "run 'setlist auth'")
	report("Last.fm API key", creds.LastFM.APIKey != "", "enrichment will be skipped")
	report("DeepSeek API key", creds.DeepSeek.APIKey != "", "required for 'generate'")

	if r.config.Database.Path != "" {
		r.writePlain("✓ Enrichment cache: %s\n", r.config.Database.Path)
	} else {
		r.writePlain("- Enrichment cache disabled\n")
	}

	p := r.config.Pipeline
	r.writePlain("\nPipeline defaults: tracks=%d clusters=%d batch=%d min_score=%.1f seed=%d\n",
		p.Tracks, p.Clusters, p.BatchSize, p.MinScore, p.Seed)
	return nil
}
