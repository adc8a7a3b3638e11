// Spotify API implementation of [CatalogService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify caps page sizes and playlist mutations.
	spotifyPageLimit     = 50
	spotifyAddTracksMax  = 100
	spotifyFeaturesLimit = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Popularity   int             `json:"popularity"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAudioFeatures represents the acoustic attributes Spotify computes per track.
type SpotifyAudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
}

// Attributes converts the response row into the canonical attribute mapping.
func (f SpotifyAudioFeatures) Attributes() map[string]float64 {
	return map[string]float64{
		"danceability":     f.Danceability,
		"energy":           f.Energy,
		"loudness":         f.Loudness,
		"speechiness":      f.Speechiness,
		"acousticness":     f.Acousticness,
		"instrumentalness": f.Instrumentalness,
		"liveness":         f.Liveness,
		"valence":          f.Valence,
		"tempo":            f.Tempo,
	}
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyService implements [CatalogService] for the Spotify Web API.
// Uses [oauth2] for authentication.
type SpotifyService struct {
	config      *oauth2.Config
	token       *oauth2.Token
	httpClient  *http.Client
	credentials map[string]string
	baseURL     string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-top-read",
			"user-library-read",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		credentials: credentials,
		baseURL:     spotifyBaseURL,
	}, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.token = &oauth2.Token{AccessToken: accessToken}
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the OAuth2 config for the callback server.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// SetBaseURL overrides the API endpoint, used by tests.
func (s *SpotifyService) SetBaseURL(baseURL string) {
	s.baseURL = baseURL
}

// SetToken installs a previously obtained token.
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := s.baseURL + endpoint

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// TopTracks retrieves the listener's top tracks as raw records, with the
// acoustic-attribute mapping attached.
func (s *SpotifyService) TopTracks(ctx context.Context, limit int) ([]models.RawRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > spotifyPageLimit {
		limit = spotifyPageLimit
	}

	endpoint := fmt.Sprintf("/me/top/tracks?limit=%d&time_range=medium_term", limit)

	var response struct {
		Items []SpotifyTrack `json:"items"`
	}
	if err := s.doRequest(ctx, "GET", endpoint, nil, &response); err != nil {
		return nil, err
	}

	attrs, err := s.audioFeatures(ctx, trackIDs(response.Items))
	if err != nil {
		return nil, err
	}

	records := make([]models.RawRecord, 0, len(response.Items))
	for _, item := range response.Items {
		records = append(records, models.TopTrackRecord{
			ID:         item.ID,
			Name:       item.Name,
			Artists:    artistNames(item.Artists),
			Album:      item.Album.Name,
			DurationMS: item.DurationMS,
			Popularity: item.Popularity,
			Attributes: attrs[item.ID],
		})
	}

	return records, nil
}

// SavedTracks retrieves the listener's saved tracks as raw records, paging
// through the library until limit is reached.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit int) ([]models.RawRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var saved []SpotifySavedTrack
	offset := 0

	for len(saved) < limit {
		pageSize := limit - len(saved)
		if pageSize > spotifyPageLimit {
			pageSize = spotifyPageLimit
		}

		endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", pageSize, offset)

		var response SpotifyPaginatedTracks
		if err := s.doRequest(ctx, "GET", endpoint, nil, &response); err != nil {
			return nil, err
		}

		if len(response.Items) == 0 {
			break
		}

		saved = append(saved, response.Items...)
		offset += len(response.Items)

		if response.Next == nil {
			break
		}
	}

	tracks := make([]SpotifyTrack, 0, len(saved))
	for _, item := range saved {
		tracks = append(tracks, item.Track)
	}

	attrs, err := s.audioFeatures(ctx, trackIDs(tracks))
	if err != nil {
		return nil, err
	}

	records := make([]models.RawRecord, 0, len(saved))
	for _, item := range saved {
		records = append(records, models.SavedTrackRecord{
			ID:         item.Track.ID,
			AddedAt:    item.AddedAt,
			Name:       item.Track.Name,
			Artists:    artistNames(item.Track.Artists),
			Album:      item.Track.Album.Name,
			DurationMS: item.Track.DurationMS,
			Popularity: item.Track.Popularity,
			Attributes: attrs[item.Track.ID],
		})
	}

	return records, nil
}

// audioFeatures retrieves acoustic attributes for the given track IDs,
// batched per the API's 100-ID cap. Tracks without features are simply
// absent from the returned map; the extractor's imputation covers them.
func (s *SpotifyService) audioFeatures(ctx context.Context, ids []string) (map[string]map[string]float64, error) {
	attrs := make(map[string]map[string]float64, len(ids))

	for start := 0; start < len(ids); start += spotifyFeaturesLimit {
		end := start + spotifyFeaturesLimit
		if end > len(ids) {
			end = len(ids)
		}

		endpoint := fmt.Sprintf("/audio-features?ids=%s", url.QueryEscape(strings.Join(ids[start:end], ",")))

		var response struct {
			AudioFeatures []*SpotifyAudioFeatures `json:"audio_features"`
		}
		if err := s.doRequest(ctx, "GET", endpoint, nil, &response); err != nil {
			return nil, err
		}

		for _, f := range response.AudioFeatures {
			if f == nil || f.ID == "" {
				continue
			}
			attrs[f.ID] = f.Attributes()
		}
	}

	return attrs, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "GET", "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreatePlaylist creates a private playlist and adds the given tracks in order.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, trackIDs []string) (*models.Playlist, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidInput)
	}

	user, err := s.UserProfile(ctx)
	if err != nil {
		return nil, err
	}

	var created struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		ExternalURLs externalURLs `json:"external_urls"`
	}
	createBody := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(user.ID))
	if err := s.doRequest(ctx, "POST", endpoint, createBody, &created); err != nil {
		return nil, err
	}

	for start := 0; start < len(trackIDs); start += spotifyAddTracksMax {
		end := start + spotifyAddTracksMax
		if end > len(trackIDs) {
			end = len(trackIDs)
		}

		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}

		addEndpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(created.ID))
		if err := s.doRequest(ctx, "POST", addEndpoint, map[string]any{"uris": uris}, nil); err != nil {
			return nil, fmt.Errorf("playlist created but adding tracks failed: %w", err)
		}
	}

	return &models.Playlist{
		ID:          created.ID,
		Name:        created.Name,
		Description: description,
		URL:         created.ExternalURLs.Spotify,
		TrackCount:  len(trackIDs),
		Public:      false,
	}, nil
}

func trackIDs(tracks []SpotifyTrack) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func artistNames(artists []SpotifyArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}
