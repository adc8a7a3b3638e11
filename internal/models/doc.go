// Package models defines the domain entities for the setlist playlist curator.
//
// The package contains three categories of types:
//
// 1. Raw provider records: one variant per catalog source, normalized into the
// canonical Track before any shared logic runs
//   - [TopTrackRecord] : a row from the listener's top-tracks ranking
//   - [SavedTrackRecord] : a row from the listener's saved library
//
// 2. The canonical [Track] entity: merged from one or more raw records,
// enriched in place by optional metadata sources, then mutated by the
// pipeline stages (feature vector, cluster assignment, AI verdict).
//
// 3. Supporting value types: [Enrichment] from metadata sources,
// [Verdict] and [Recommendation] from the AI scoring service, and
// [Playlist] for the playlist sink.
package models
