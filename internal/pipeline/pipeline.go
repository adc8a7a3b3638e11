package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/services"
	"github.com/avelara/setlist/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// EnrichmentCache persists enrichment responses between runs so repeated
// corpus pulls skip the metadata service round trip.
type EnrichmentCache interface {
	Get(service, key string) (*models.Enrichment, bool, error)
	Put(service, key string, enrichment *models.Enrichment) error
}

// RunOptions are the parameters for one pipeline run. Zero values fall back
// to config-level defaults upstream; the engine validates, it does not guess.
type RunOptions struct {
	Clusters      int
	BatchSize     int
	MinScore      float64
	Seed          int64
	PCAComponents int

	Retry          RetryPolicy
	BatchInterval  time.Duration
	EnrichInterval time.Duration

	SkipEnrichment bool // leave enrichment attributes empty
	SkipScoring    bool // stop after clustering (analysis-only run)

	PlaylistName string
}

// TagCount is one entry in the genre summary derived from enrichment tags.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// RunResult contains all data from one pipeline run. The report is always
// populated, including for partial runs where batches failed.
type RunResult struct {
	Tracks         []*models.Track   // full working set, post-run
	Selected       []*models.Track   // playlist selection, score-ordered
	Report         *ClusterReport    // cluster descriptors and stats
	Stats          *Stats            // selection statistics
	Validation     *ValidationResult // batch-level validation counters
	Audits         []BatchAudit      // full request/response per batch
	DroppedRecords int               // raw records without identity
	GenreSummary   []TagCount        // top enrichment tags
	Elapsed        time.Duration
}

// Engine orchestrates a pipeline run over the configured services.
type Engine struct {
	catalog  services.CatalogService
	enricher services.Enricher
	scorer   services.Scorer
	cache    EnrichmentCache
	logger   *log.Logger
}

// NewEngine creates an Engine. enricher, scorer, and cache may be nil; the
// corresponding stages are skipped or degrade to uncached operation.
func NewEngine(catalog services.CatalogService, enricher services.Enricher, scorer services.Scorer, cache EnrichmentCache, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		catalog:  catalog,
		enricher: enricher,
		scorer:   scorer,
		cache:    cache,
		logger:   logger,
	}
}

// CollectRecords pulls the raw corpus from the catalog source: half from the
// listener's top-tracks ranking, half from the saved library. Overlap between
// the two is expected; the normalizer merges it.
func (e *Engine) CollectRecords(ctx context.Context, limit int) ([]models.RawRecord, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}
	if limit < 2 {
		return nil, fmt.Errorf("%w: track limit %d", shared.ErrInvalidArgument, limit)
	}

	half := limit / 2

	top, err := e.catalog.TopTracks(ctx, half)
	if err != nil {
		return nil, fmt.Errorf("fetch top tracks: %w", err)
	}

	saved, err := e.catalog.SavedTracks(ctx, half)
	if err != nil {
		return nil, fmt.Errorf("fetch saved tracks: %w", err)
	}

	e.logger.Info("collected raw records", "source", e.catalog.Name(), "top", len(top), "saved", len(saved))
	return append(top, saved...), nil
}

// Run executes the full pipeline over the given raw records.
//
// Configuration is validated against the normalized working set before any
// network call or feature extraction, so a bad cluster count or batch size
// costs nothing. A terminally failed scoring batch leaves its tracks
// unscored and the run continues; Run fails only on configuration errors,
// permanent service errors, or context cancellation.
func (e *Engine) Run(ctx context.Context, progress chan<- ProgressUpdate, records []models.RawRecord, opts RunOptions) (*RunResult, error) {
	started := time.Now()

	tracks, dropped := Normalize(records)
	result := &RunResult{Tracks: tracks, DroppedRecords: dropped}
	sendProgress(progress, normalizeUpdate(len(tracks), dropped))
	if dropped > 0 {
		e.logger.Warn("dropped records without identity", "count", dropped)
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: nothing to curate", shared.ErrEmptyCorpus)
	}
	if err := ValidateClusterCount(opts.Clusters, len(tracks)); err != nil {
		return nil, err
	}
	if !opts.SkipScoring && opts.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", shared.ErrBatchSize, opts.BatchSize)
	}

	if !opts.SkipEnrichment && e.enricher != nil {
		if err := e.enrich(ctx, progress, tracks, opts.EnrichInterval); err != nil {
			return nil, err
		}
		result.GenreSummary = summarizeTags(tracks, 10)
	}

	if _, err := ExtractFeatures(tracks); err != nil {
		return nil, err
	}
	sendProgress(progress, extractUpdate(len(tracks)))

	_, report, err := ClusterTracks(tracks, ClusterConfig{
		K:             opts.Clusters,
		PCAComponents: opts.PCAComponents,
		Seed:          opts.Seed,
	})
	if err != nil {
		return nil, err
	}
	result.Report = report
	sendProgress(progress, clusterUpdate(opts.Clusters, report))

	if !opts.SkipScoring {
		if e.scorer == nil {
			return nil, fmt.Errorf("%w: scoring service not initialized", shared.ErrServiceUnavailable)
		}

		validator := NewValidator(e.scorer, ValidatorOpts{
			Policy:      opts.Retry,
			MinInterval: opts.BatchInterval,
			Logger:      e.logger,
		})

		totalBatches := (len(tracks) + opts.BatchSize - 1) / opts.BatchSize
		sendProgress(progress, validateUpdate(0, totalBatches))

		validation, err := validator.Validate(ctx, tracks, report, opts.BatchSize)
		result.Validation = validation
		result.Audits = validator.Audits()
		if err != nil {
			return result, err
		}
		if validation.FailedBatches > 0 {
			e.logger.Warn("batches failed, tracks left unscored",
				"failed", validation.FailedBatches, "unscored", validation.UnscoredTracks)
		}
	}

	result.Selected, result.Stats = Assemble(tracks, opts.MinScore)
	sendProgress(progress, assembleUpdate(len(result.Selected), len(tracks)))

	result.Elapsed = time.Since(started)
	return result, nil
}

// enrich annotates the working set with tags, similar tracks, and listener
// counts. Lookups are paced, cached, and best-effort: a missing track is
// skipped, and any cache failure degrades to a live lookup.
func (e *Engine) enrich(ctx context.Context, progress chan<- ProgressUpdate, tracks []*models.Track, interval time.Duration) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	total := len(tracks)
	hits, misses := 0, 0
	for i, t := range tracks {
		key := shared.NormalizeTrackKey(t.Name, t.Artist())

		if e.cache != nil {
			if cached, ok, err := e.cache.Get(e.enricher.Name(), key); err == nil && ok {
				cached.ApplyTo(t)
				hits++
				continue
			}
		}

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		sendProgress(progress, enrichUpdate(i+1, total, t.Name, t.Artist()))
		enrichment, err := e.enricher.Enrich(ctx, t.Name, t.Artist())
		if err != nil {
			if errors.Is(err, shared.ErrTrackNotFound) {
				misses++
				sendProgress(progress, enrichSkippedUpdate(i+1, total, t.Name))
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("enrichment lookup failed", "track", t.Name, "err", err)
			continue
		}

		enrichment.ApplyTo(t)
		if e.cache != nil {
			if err := e.cache.Put(e.enricher.Name(), key, enrichment); err != nil {
				e.logger.Warn("enrichment cache write failed", "key", key, "err", err)
			}
		}
	}

	e.logger.Info("enrichment complete", "source", e.enricher.Name(),
		"tracks", total, "cache_hits", hits, "not_found", misses)
	return nil
}

// summarizeTags counts enrichment tags across the working set and returns
// the top n, most frequent first, ties alphabetical.
func summarizeTags(tracks []*models.Track, n int) []TagCount {
	counts := make(map[string]int)
	for _, t := range tracks {
		for _, tag := range t.Tags {
			counts[tag]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	summary := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		summary = append(summary, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Count != summary[j].Count {
			return summary[i].Count > summary[j].Count
		}
		return summary[i].Tag < summary[j].Tag
	})

	if len(summary) > n {
		summary = summary[:n]
	}
	return summary
}
