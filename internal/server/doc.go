// Package server provides the local HTTP plumbing for the Spotify OAuth flow.
//
// When the user runs `setlist auth`, [NewCallbackServer] starts a temporary
// HTTP server on the redirect URI's host. [OAuthHandler] validates the state
// parameter (CSRF protection), exchanges the authorization code for tokens,
// and delivers the result through a channel. It processes exactly one
// callback to prevent replay; the auth command shuts the server down once a
// result arrives. Nothing here runs during a pipeline run.
package server
