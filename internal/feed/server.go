package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stylewatch/internal/config"
)

const shutdownGrace = 2 * time.Second

// Server serves the hub over HTTP.
type Server struct {
	cfg    config.FeedConfig
	hub    *Hub
	logger *zap.Logger
}

// NewServer creates a Server for hub.
//
// Precondition: hub and logger must be non-nil.
func NewServer(cfg config.FeedConfig, hub *Hub, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, hub: hub, logger: logger}
}

// Handler returns the HTTP routes: the websocket endpoint and a health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s.hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "ok %d\n", s.hub.Clients())
	})
	return mux
}

// Run listens on the configured address until ctx is cancelled.
//
// Postcondition: Returns nil after a clean shutdown, or the listen error.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("feed listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("path", s.cfg.Path),
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving feed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down feed: %w", err)
	}
	return nil
}
