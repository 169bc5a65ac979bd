// Package httpserver builds the HTTP server with defaults shared by main
// and tests.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an http.Server with timeouts suited to the ledger's small
// JSON payloads. The websocket feed relies on WriteTimeout staying unset.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
