package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/guidebot/guidebot/logger"
)

// shutdownTimeout bounds how long in-flight streams may run after a stop
// signal before the listener is torn down.
const shutdownTimeout = 15 * time.Second

// Server wraps http.Server with context-driven graceful shutdown.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewServer creates a server for the given address and handler. Streaming
// responses rule out a tight WriteTimeout; idle and header timeouts still
// protect the listener.
func NewServer(addr string, handler http.Handler, log *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: log.With(logger.Component("server")),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", slog.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
