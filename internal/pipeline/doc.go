// Package pipeline implements the track curation pipeline: raw provider
// records are normalized into canonical tracks, enriched with external
// metadata, encoded as feature vectors, clustered into style groups,
// validated by an AI scoring service, and assembled into the final playlist.
//
// The core abstraction is [Engine], which orchestrates the stages over a
// single in-memory working set of tracks. Stages run strictly in sequence
// and each one writes only the track fields it owns. Operations emit
// progress updates via channels for non-blocking status reporting to the
// CLI layer.
package pipeline
