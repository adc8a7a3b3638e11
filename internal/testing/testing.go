// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/avelara/setlist/internal/models"
)

// MockCatalog is a test double for services.CatalogService.
type MockCatalog struct {
	TopRecords   []models.RawRecord
	SavedRecords []models.RawRecord
	Created      *models.Playlist
	Err          error

	TopCalls    int
	SavedCalls  int
	CreateCalls int
}

func (m *MockCatalog) TopTracks(ctx context.Context, limit int) ([]models.RawRecord, error) {
	m.TopCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.TopRecords, nil
}

func (m *MockCatalog) SavedTracks(ctx context.Context, limit int) ([]models.RawRecord, error) {
	m.SavedCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SavedRecords, nil
}

func (m *MockCatalog) CreatePlaylist(ctx context.Context, name, description string, trackIDs []string) (*models.Playlist, error) {
	m.CreateCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Created != nil {
		return m.Created, nil
	}
	return &models.Playlist{Name: name, Description: description, TrackCount: len(trackIDs)}, nil
}

func (m *MockCatalog) Name() string { return "mock-catalog" }

// MockEnricher is a test double for services.Enricher. Results are keyed by
// track name; absent names return Err (or nil enrichment when Err is nil).
type MockEnricher struct {
	Results map[string]*models.Enrichment
	Err     error
	Calls   int
}

func (m *MockEnricher) Enrich(ctx context.Context, name, artist string) (*models.Enrichment, error) {
	m.Calls++
	if enrichment, ok := m.Results[name]; ok {
		return enrichment, nil
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Enrichment{}, nil
}

func (m *MockEnricher) Name() string { return "mock-enricher" }

// MockScorer is a test double for services.Scorer. Responses are returned in
// order; when exhausted, the last one repeats. A response holding an error
// value fails that call.
type MockScorer struct {
	Responses []string
	Errs      []error
	Calls     int
	Prompts   []string
}

func (m *MockScorer) Score(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	idx := m.Calls
	m.Calls++
	m.Prompts = append(m.Prompts, userPrompt)

	if idx < len(m.Errs) && m.Errs[idx] != nil {
		return "", m.Errs[idx]
	}
	if len(m.Responses) == 0 {
		return "", errors.New("no responses configured")
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

func (m *MockScorer) Name() string { return "mock-scorer" }

// MemoryCache is an in-memory pipeline.EnrichmentCache.
type MemoryCache struct {
	Entries map[string]*models.Enrichment
	Gets    int
	Puts    int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{Entries: map[string]*models.Enrichment{}}
}

func (c *MemoryCache) Get(service, key string) (*models.Enrichment, bool, error) {
	c.Gets++
	enrichment, ok := c.Entries[service+"|"+key]
	return enrichment, ok, nil
}

func (c *MemoryCache) Put(service, key string, enrichment *models.Enrichment) error {
	c.Puts++
	c.Entries[service+"|"+key] = enrichment
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
