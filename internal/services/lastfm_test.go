package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avelara/setlist/internal/shared"
)

func TestLastFMService(t *testing.T) {
	t.Run("Requires API Key", func(t *testing.T) {
		if _, err := NewLastFMService(""); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Enrich", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("method") {
			case "track.getInfo":
				json.NewEncoder(w).Encode(map[string]any{
					"track": map[string]any{
						"name": "Song", "listeners": "12345", "playcount": "67890",
						"toptags": map[string]any{
							"tag": []map[string]any{{"name": "pop"}, {"name": "dance"}, {"name": ""}},
						},
					},
				})
			case "track.getSimilar":
				json.NewEncoder(w).Encode(map[string]any{
					"similartracks": map[string]any{
						"track": []map[string]any{
							{"name": "Other Song", "artist": map[string]any{"name": "Other Artist"}},
						},
					},
				})
			default:
				t.Errorf("unexpected method: %s", r.URL.Query().Get("method"))
			}
		}))
		defer ts.Close()

		svc, err := NewLastFMService("key")
		if err != nil {
			t.Fatal(err)
		}
		svc.SetBaseURL(ts.URL)

		enrichment, err := svc.Enrich(context.Background(), "Song", "Artist")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if enrichment.Listeners != 12345 || enrichment.Playcount != 67890 {
			t.Errorf("unexpected counters: %+v", enrichment)
		}
		if len(enrichment.Tags) != 2 || enrichment.Tags[0] != "pop" {
			t.Errorf("expected empty tags filtered, got %v", enrichment.Tags)
		}
		if len(enrichment.SimilarTracks) != 1 || enrichment.SimilarTracks[0] != "Other Artist - Other Song" {
			t.Errorf("unexpected similar tracks: %v", enrichment.SimilarTracks)
		}
	})

	t.Run("Unknown Track", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"error": 6, "message": "Track not found"})
		}))
		defer ts.Close()

		svc, err := NewLastFMService("key")
		if err != nil {
			t.Fatal(err)
		}
		svc.SetBaseURL(ts.URL)

		if _, err := svc.Enrich(context.Background(), "Nope", "Nobody"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("Similar Tracks Failure Is Best Effort", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("method") == "track.getInfo" {
				json.NewEncoder(w).Encode(map[string]any{
					"track": map[string]any{"name": "Song", "listeners": "10", "playcount": "20"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"error": 8, "message": "backend error"})
		}))
		defer ts.Close()

		svc, err := NewLastFMService("key")
		if err != nil {
			t.Fatal(err)
		}
		svc.SetBaseURL(ts.URL)

		enrichment, err := svc.Enrich(context.Background(), "Song", "Artist")
		if err != nil {
			t.Fatalf("similar-track failure must not fail enrichment: %v", err)
		}
		if enrichment.Listeners != 10 {
			t.Errorf("expected track info preserved, got %+v", enrichment)
		}
		if len(enrichment.SimilarTracks) != 0 {
			t.Errorf("expected no similar tracks, got %v", enrichment.SimilarTracks)
		}
	})
}

func TestAtoiLoose(t *testing.T) {
	tc := []struct {
		in   string
		want int
	}{
		{"123", 123},
		{"", 0},
		{"abc", 0},
		{"-5", -5},
	}

	for _, tt := range tc {
		if got := atoiLoose(tt.in); got != tt.want {
			t.Errorf("atoiLoose(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
