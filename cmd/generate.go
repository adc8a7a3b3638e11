package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avelara/setlist/internal/formatter"
	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/pipeline"
	"github.com/avelara/setlist/internal/repositories"
	"github.com/avelara/setlist/internal/shared"
	"github.com/avelara/setlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Generate runs the full curation pipeline and writes the playlist files.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	if err := r.connectSpotify(ctx); err != nil {
		return err
	}
	if r.scorer == nil {
		return fmt.Errorf("%w: DeepSeek api_key must be set in config.toml", shared.ErrMissingCredentials)
	}

	opts := r.runOptions(cmd)
	opts.PlaylistName = cmd.String("name")

	cache, db, err := r.openCache()
	if err != nil {
		r.logger.Warn("enrichment cache unavailable, continuing without it", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	engine := pipeline.NewEngine(r.spotify, r.enricher, r.scorer, cache, r.logger)

	limit := int(cmd.Int("tracks"))
	if limit <= 0 {
		limit = r.config.Pipeline.Tracks
	}

	records, err := engine.CollectRecords(ctx, limit)
	if err != nil {
		return err
	}

	result, err := r.runPipeline(ctx, engine, records, opts)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.RenderClusterOverview(result.Report))
	r.writePlain("%s\n", ui.RenderValidationSummary(result.Selected, result.Stats))

	if cmd.Bool("json") {
		doc, err := formatter.ExportToJSON(result, opts.PlaylistName, opts.MinScore)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", doc)
	}

	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Output.Dir
	}
	exports, err := formatter.WriteExports(result, opts.PlaylistName, outputDir, opts.MinScore)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Playlist generated in %s", result.Elapsed.Round(time.Second))
	r.writePlain("  Playlist: %s\n", exports.TextFile)
	r.writePlain("  JSON:     %s\n", exports.JSONFile)
	r.writePlain("  Report:   %s\n", exports.ReportFile)
	r.writePlain("\nCreate it on Spotify with: setlist playlist create -f %s\n", exports.JSONFile)
	return nil
}

// Analyze runs the pipeline without AI validation and writes the analysis report.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	if err := r.connectSpotify(ctx); err != nil {
		return err
	}

	opts := r.runOptions(cmd)
	opts.SkipScoring = true
	opts.PlaylistName = "Library Analysis"

	cache, db, err := r.openCache()
	if err != nil {
		r.logger.Warn("enrichment cache unavailable, continuing without it", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	engine := pipeline.NewEngine(r.spotify, r.enricher, nil, cache, r.logger)

	limit := int(cmd.Int("tracks"))
	if limit <= 0 {
		limit = r.config.Pipeline.Tracks
	}

	records, err := engine.CollectRecords(ctx, limit)
	if err != nil {
		return err
	}

	result, err := r.runPipeline(ctx, engine, records, opts)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.RenderClusterOverview(result.Report))

	if len(result.GenreSummary) > 0 {
		r.writePlainln("Top genres:")
		for _, tc := range result.GenreSummary {
			r.writePlain("  %s (%d)\n", tc.Tag, tc.Count)
		}
	}

	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Output.Dir
	}
	exports, err := formatter.WriteExports(result, opts.PlaylistName, outputDir, opts.MinScore)
	if err != nil {
		return err
	}
	r.writePlain("\n✓ Analysis report: %s\n", exports.ReportFile)
	return nil
}

// runPipeline executes the engine run while draining progress updates to the log.
func (r *Runner) runPipeline(ctx context.Context, engine *pipeline.Engine, records []models.RawRecord, opts pipeline.RunOptions) (*pipeline.RunResult, error) {
	progress := make(chan pipeline.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase.String())
		}
	}()

	result, err := engine.Run(ctx, progress, records, opts)
	close(progress)
	<-done
	return result, err
}

// runOptions builds pipeline options from config defaults with flag overrides.
func (r *Runner) runOptions(cmd *cli.Command) pipeline.RunOptions {
	pc := r.config.Pipeline

	opts := pipeline.RunOptions{
		Clusters:      pc.Clusters,
		BatchSize:     pc.BatchSize,
		MinScore:      pc.MinScore,
		Seed:          pc.Seed,
		PCAComponents: pc.PCAComponents,
		Retry: pipeline.RetryPolicy{
			MaxAttempts: pc.MaxAttempts,
			BaseDelay:   pc.BaseDelay(),
			Jitter:      0.25,
		},
		BatchInterval:  pc.BatchInterval(),
		EnrichInterval: pc.EnrichInterval(),
		SkipEnrichment: pc.SkipLastFM || r.enricher == nil,
	}

	if k := int(cmd.Int("clusters")); k > 0 {
		opts.Clusters = k
	}
	if size := int(cmd.Int("batch-size")); size > 0 {
		opts.BatchSize = size
	}
	if score := cmd.Float("min-score"); score > 0 {
		opts.MinScore = score
	}
	if seed := cmd.Int("seed"); seed != 0 {
		opts.Seed = int64(seed)
	}
	if cmd.Bool("skip-lastfm") {
		opts.SkipEnrichment = true
	}

	return opts
}

// connectSpotify verifies the catalog service is configured and installs the
// saved token.
func (r *Runner) connectSpotify(ctx context.Context) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}
	if r.config.Credentials.Spotify.AccessToken == "" {
		return fmt.Errorf("%w: run 'setlist auth' first", shared.ErrNotAuthenticated)
	}
	return r.spotify.Authenticate(ctx, map[string]string{
		"access_token": r.config.Credentials.Spotify.AccessToken,
	})
}

// openCache opens the sqlite-backed enrichment cache when configured.
func (r *Runner) openCache() (pipeline.EnrichmentCache, *sql.DB, error) {
	if r.config.Database.Path == "" {
		return nil, nil, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	repo, err := repositories.NewEnrichmentRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db, nil
}
