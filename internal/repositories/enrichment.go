package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avelara/setlist/internal/models"
)

const enrichmentSchema = `
CREATE TABLE IF NOT EXISTS enrichments (
	service TEXT NOT NULL,
	key TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE(service, key)
);
CREATE INDEX IF NOT EXISTS idx_enrichments_service ON enrichments(service);
`

// EnrichmentRepository implements pipeline.EnrichmentCache on SQLite.
//
// Writes upsert on the (service, key) constraint so a refreshed lookup
// replaces the stale payload instead of erroring.
type EnrichmentRepository struct {
	db *sql.DB
}

// NewEnrichmentRepository creates the repository and ensures the schema exists.
func NewEnrichmentRepository(db *sql.DB) (*EnrichmentRepository, error) {
	if _, err := db.Exec(enrichmentSchema); err != nil {
		return nil, fmt.Errorf("failed to create enrichment schema: %w", err)
	}
	return &EnrichmentRepository{db: db}, nil
}

// Get retrieves a cached enrichment. The second return reports whether the
// cache held an entry; a decode failure is treated as a miss so a corrupt
// row degrades to a live lookup.
func (r *EnrichmentRepository) Get(service, key string) (*models.Enrichment, bool, error) {
	query := `SELECT payload FROM enrichments WHERE service = ? AND key = ?`

	var payload string
	err := r.db.QueryRow(query, service, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read enrichment: %w", err)
	}

	var enrichment models.Enrichment
	if err := json.Unmarshal([]byte(payload), &enrichment); err != nil {
		return nil, false, nil
	}

	return &enrichment, true, nil
}

// Put stores an enrichment, replacing any existing entry for the same
// service and key.
func (r *EnrichmentRepository) Put(service, key string, enrichment *models.Enrichment) error {
	payload, err := json.Marshal(enrichment)
	if err != nil {
		return fmt.Errorf("failed to encode enrichment: %w", err)
	}

	query := `
		INSERT INTO enrichments (service, key, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(service, key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at
	`

	if _, err := r.db.Exec(query, service, key, string(payload), time.Now()); err != nil {
		return fmt.Errorf("failed to store enrichment: %w", err)
	}

	return nil
}

// Count returns the number of cached entries for a service.
func (r *EnrichmentRepository) Count(service string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM enrichments WHERE service = ?`, service).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count enrichments: %w", err)
	}
	return n, nil
}
