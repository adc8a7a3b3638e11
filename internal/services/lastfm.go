// Last.fm implementation of [Enricher]
//
// Uses the public read-only API: https://www.last.fm/api
package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/shared"
	"github.com/go-resty/resty/v2"
)

const (
	lastfmBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// Last.fm error code for an unknown track.
	lastfmNotFoundCode = 6

	lastfmTagLimit     = 10
	lastfmSimilarLimit = 5
)

// lastfmError is the envelope Last.fm returns for API-level failures.
type lastfmError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

type lastfmTag struct {
	Name string `json:"name"`
}

type lastfmTrackInfo struct {
	Track struct {
		Name      string `json:"name"`
		Listeners string `json:"listeners"`
		Playcount string `json:"playcount"`
		TopTags   struct {
			Tag []lastfmTag `json:"tag"`
		} `json:"toptags"`
	} `json:"track"`
	lastfmError
}

type lastfmSimilar struct {
	SimilarTracks struct {
		Track []struct {
			Name   string `json:"name"`
			Artist struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"track"`
	} `json:"similartracks"`
	lastfmError
}

// LastFMService implements [Enricher] against the Last.fm API. Transient
// failures (timeouts, 429, 5xx) are retried per request with backoff by the
// underlying client; a miss surfaces as [shared.ErrTrackNotFound].
type LastFMService struct {
	apiKey string
	client *resty.Client
}

// NewLastFMService creates a Last.fm enricher with the given API key.
func NewLastFMService(apiKey string) (*LastFMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Last.fm api_key", shared.ErrMissingCredentials)
	}

	client := resty.New().
		SetBaseURL(lastfmBaseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &LastFMService{apiKey: apiKey, client: client}, nil
}

func (s *LastFMService) Name() string {
	return "Last.fm"
}

// SetBaseURL overrides the API endpoint, used by tests.
func (s *LastFMService) SetBaseURL(baseURL string) {
	s.client.SetBaseURL(baseURL)
}

// Enrich looks up tags, similar tracks, and listener counts for one track.
func (s *LastFMService) Enrich(ctx context.Context, name, artist string) (*models.Enrichment, error) {
	info, err := s.trackInfo(ctx, name, artist)
	if err != nil {
		return nil, err
	}

	enrichment := &models.Enrichment{
		Listeners: atoiLoose(info.Track.Listeners),
		Playcount: atoiLoose(info.Track.Playcount),
	}
	for _, tag := range info.Track.TopTags.Tag {
		if tag.Name == "" {
			continue
		}
		enrichment.Tags = append(enrichment.Tags, tag.Name)
		if len(enrichment.Tags) >= lastfmTagLimit {
			break
		}
	}

	// Similar tracks are best-effort; a failure here must not discard the
	// tags and listener data already in hand.
	if similar, err := s.similarTracks(ctx, name, artist); err == nil {
		enrichment.SimilarTracks = similar
	}

	return enrichment, nil
}

func (s *LastFMService) trackInfo(ctx context.Context, name, artist string) (*lastfmTrackInfo, error) {
	var info lastfmTrackInfo

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"method":  "track.getInfo",
			"api_key": s.apiKey,
			"track":   name,
			"artist":  artist,
			"format":  "json",
		}).
		SetResult(&info).
		SetError(&info.lastfmError).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if info.Error == lastfmNotFoundCode {
		return nil, fmt.Errorf("%w: %q by %q", shared.ErrTrackNotFound, name, artist)
	}
	if info.Error != 0 {
		return nil, fmt.Errorf("%w: last.fm error %d: %s", shared.ErrAPIRequest, info.Error, info.Message)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: last.fm status %d", shared.ErrAPIRequest, resp.StatusCode())
	}

	return &info, nil
}

func (s *LastFMService) similarTracks(ctx context.Context, name, artist string) ([]string, error) {
	var similar lastfmSimilar

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"method":  "track.getSimilar",
			"api_key": s.apiKey,
			"track":   name,
			"artist":  artist,
			"limit":   strconv.Itoa(lastfmSimilarLimit),
			"format":  "json",
		}).
		SetResult(&similar).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if similar.Error != 0 || resp.IsError() {
		return nil, fmt.Errorf("%w: last.fm similar tracks unavailable", shared.ErrAPIRequest)
	}

	tracks := make([]string, 0, len(similar.SimilarTracks.Track))
	for _, t := range similar.SimilarTracks.Track {
		tracks = append(tracks, fmt.Sprintf("%s - %s", t.Artist.Name, t.Name))
	}
	return tracks, nil
}

// atoiLoose parses Last.fm's string-encoded counters, returning 0 for
// anything unparsable.
func atoiLoose(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
