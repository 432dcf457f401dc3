package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Only the header read is bounded here; request
// deadlines belong to the handlers, since XML export can be slow.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
