package services

import (
	"context"

	"github.com/avelara/setlist/internal/models"
)

// CatalogService is the music catalog source. It returns raw provider
// records carrying a provider-stable identity and the acoustic-attribute
// mapping; the pipeline's normalizer owns deduplication.
type CatalogService interface {
	// TopTracks fetches up to limit records from the listener's top-tracks ranking.
	TopTracks(ctx context.Context, limit int) ([]models.RawRecord, error)

	// SavedTracks fetches up to limit records from the listener's saved library.
	SavedTracks(ctx context.Context, limit int) ([]models.RawRecord, error)

	// CreatePlaylist creates a playlist on the service with the given track
	// identities, in order. Invoked by the assembler's caller, never by the
	// core pipeline.
	CreatePlaylist(ctx context.Context, name, description string, trackIDs []string) (*models.Playlist, error)

	// Name returns the service name (e.g. "Spotify").
	Name() string
}

// Enricher is the optional metadata enrichment source. A miss is reported as
// [shared.ErrTrackNotFound] and must never fail the pipeline.
type Enricher interface {
	Enrich(ctx context.Context, name, artist string) (*models.Enrichment, error)
	Name() string
}

// Scorer is the AI scoring service. It accepts a rendered batch prompt and
// returns the raw response text for the validator to parse.
type Scorer interface {
	Score(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}
