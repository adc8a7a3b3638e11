// Package repositories implements SQLite persistence for enrichment data.
//
// The cache is keyed by enrichment service and normalized track identity so
// repeated runs over an overlapping corpus skip the metadata round trips.
// Entries are stored as JSON payloads; schema setup is idempotent and runs
// on every open.
package repositories
