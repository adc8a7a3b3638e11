// Package services implements the narrow contracts the core pipeline consumes
// from external collaborators: the music catalog source (Spotify), the
// optional metadata enrichment source (Last.fm), and the AI scoring service
// (DeepSeek). Transient errors are retried here, at the collaborator
// boundary, not inside the pipeline.
package services
