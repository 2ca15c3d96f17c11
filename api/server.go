package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/multierr"
)

const shutdownGrace = 10 * time.Second

// Server wraps http.Server with sane timeouts and graceful shutdown.
type Server struct {
	http *http.Server
}

// NewServer builds a server for the given address and handler.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Run serves until the context is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return multierr.Append(s.http.Shutdown(shutdownCtx), <-errCh)
}
