package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/avelara/setlist/internal/server"
	"github.com/avelara/setlist/internal/services"
	"github.com/avelara/setlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// Auth performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server on the redirect URI's address, prints the
// authorization URL, and exchanges the callback code for tokens. Tokens are
// written back to the config file so later runs reuse them.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	spotify := r.spotify
	if spotify == nil {
		svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
		if err != nil {
			return fmt.Errorf("failed to create Spotify service: %w", err)
		}
		spotify = svc
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	callbackAddr, err := redirectAddr(config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return err
	}

	oauthHandler := server.NewOAuthHandler(spotify.OAuthConfig(), state)
	httpServer := server.NewCallbackServer(callbackAddr, oauthHandler)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", callbackAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("→ Open this URL in your browser to authorize Spotify:\n\n%s\n\n", spotify.AuthURL(state))
	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	config.Credentials.Spotify.AccessToken = result.Token.AccessToken
	config.Credentials.Spotify.RefreshToken = result.Token.RefreshToken
	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	spotify.SetToken(ctx, result.Token)
	r.spotify = spotify

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now run: setlist generate\n")

	return nil
}

// redirectAddr extracts the listen address from the configured redirect URI.
func redirectAddr(redirectURI string) (string, error) {
	if redirectURI == "" {
		return "localhost:8888", nil
	}

	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: bad redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "8888"
	}
	return net.JoinHostPort(host, port), nil
}
