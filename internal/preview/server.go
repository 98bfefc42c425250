package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/conveyor/internal/events"
	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

const reloadScript = `(() => {
  if (window.__CONVEYOR_LR__) return;
  window.__CONVEYOR_LR__ = true;
  function connect() {
    const es = new EventSource('/reload');
    let first = true; let current = null;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (first) { current = p.pass; first = false; return; }
        if (p.pass && p.pass !== current) { location.reload(); }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`

// Server serves the output root with SSE-driven live reload. An optional
// metrics handler is mounted at /metrics.
type Server struct {
	outputDir string
	hub       *ReloadHub
	logger    *slog.Logger
	metrics   http.Handler
	server    *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetricsHandler mounts a metrics endpoint, typically promhttp.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

// NewServer creates a preview server rooted at outputDir.
func NewServer(outputDir string, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		outputDir: outputDir,
		hub:       NewReloadHub(logger),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hub returns the reload hub, for broadcasting outside the event bus.
func (s *Server) Hub() *ReloadHub {
	return s.hub
}

// Handler builds the full route set.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/reload", s.hub)
	mux.HandleFunc("/reload.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, _ = w.Write([]byte(reloadScript))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	mux.Handle("/", http.FileServer(http.Dir(s.outputDir)))
	return mux
}

// Run serves until ctx is canceled, broadcasting a reload for every
// successful pass seen on the bus.
func (s *Server) Run(ctx context.Context, addr string, bus *events.Bus) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "listen for preview server").
			WithContext("addr", addr).
			Build()
	}

	// No write timeout: SSE connections are long-lived.
	s.server = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 300 * time.Second,
	}

	go s.consumePasses(ctx, bus)

	s.logger.Info("preview server listening",
		slog.String("addr", fmt.Sprintf("http://%s", ln.Addr().String())),
		slog.String("root", s.outputDir))

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Shutdown()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("preview server shutdown error", slog.Any("error", err))
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) consumePasses(ctx context.Context, bus *events.Bus) {
	if bus == nil {
		return
	}
	ch, unsub := events.Subscribe[events.PassCompleted](bus, 16)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.Succeeded {
				s.hub.Broadcast(evt.PassID)
			}
		}
	}
}
