package server

import "net/http"

// NewCallbackServer builds the short-lived HTTP server that receives the
// OAuth redirect. Only the handler's callback routes are registered; any
// other path 404s. The caller owns the server's lifecycle and shuts it down
// once a result arrives.
func NewCallbackServer(addr string, handler *OAuthHandler) *http.Server {
	mux := http.NewServeMux()
	for _, route := range handler.Routes() {
		mux.Handle(route, handler)
	}
	return &http.Server{Addr: addr, Handler: mux}
}
