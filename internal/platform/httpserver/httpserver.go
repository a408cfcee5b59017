package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. The write deadline sits above the 30s
// per-request timeout the routers enforce, so a slow handler times out
// with a JSON error instead of a dropped connection. Document uploads
// go straight to object storage via presigned URLs, so request bodies
// stay small and the read deadline can be tight.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
