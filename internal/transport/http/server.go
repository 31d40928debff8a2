// Package httptransport builds the HTTP server and the middleware chain in front of the API.
package httptransport

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the timeouts used by the API binary.
func DefaultServerConfig(address string) ServerConfig {
	return ServerConfig{
		Address:      address,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates *http.Server with provided handler.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Handler wraps the routed mux with the standard middleware stack. Authentication sits between
// CORS and the metrics layer so preflight requests never reach it.
func Handler(mux *http.ServeMux, logger logrus.FieldLogger, corsOrigin string, authenticate Middleware) http.Handler {
	return Chain(mux,
		Recovery(logger),
		RequestLogger(logger),
		CORS(corsOrigin),
		authenticate,
		Metrics(),
	)
}
