package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/avelara/setlist/internal/formatter"
	"github.com/avelara/setlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate builds a Spotify playlist from a generated playlist JSON file.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.connectSpotify(ctx); err != nil {
		return err
	}

	path := cmd.String("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read playlist file: %w", err)
	}

	var doc formatter.PlaylistDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: failed to parse playlist file: %v", shared.ErrInvalidInput, err)
	}
	if len(doc.Tracks) == 0 {
		return fmt.Errorf("%w: playlist file contains no tracks", shared.ErrInvalidInput)
	}

	ids := make([]string, 0, len(doc.Tracks))
	for _, track := range doc.Tracks {
		if track.ID != "" {
			ids = append(ids, track.ID)
		}
	}

	description := fmt.Sprintf("AI-curated party playlist (mean score %.1f)", doc.Metadata.MeanScore)
	r.logger.Infof("creating playlist %q with %d tracks", doc.Metadata.Name, len(ids))

	playlist, err := r.spotify.CreatePlaylist(ctx, doc.Metadata.Name, description, ids)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	r.writePlainln("✓ Playlist created: %s", playlist.Name)
	r.writePlain("  Tracks: %d\n", playlist.TrackCount)
	if playlist.URL != "" {
		r.writePlain("  URL: %s\n", playlist.URL)
	}
	return nil
}
