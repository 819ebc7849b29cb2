package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/cjeanneret/PongGo/internal/debug"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, broadcaster *StatusBroadcaster, engine Engine, history History) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}

	handlers := NewHandlers(broadcaster, engine, history, subFS)

	return &Server{
		addr:     addr,
		handlers: handlers,
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", s.handlers.HandleStatus)
	mux.HandleFunc("GET /status/stream", s.handlers.HandleStatusStream)
	mux.HandleFunc("GET /history", s.handlers.HandleHistory)
	mux.HandleFunc("GET /commands", s.handlers.HandleCommands)
	mux.HandleFunc("POST /start", s.handlers.HandleStart)
	mux.HandleFunc("POST /stop", s.handlers.HandleStop)
	mux.HandleFunc("POST /command", s.handlers.HandleCommand)
	mux.HandleFunc("POST /stick", s.handlers.HandleStick)
	mux.HandleFunc("POST /screen", s.handlers.HandleScreen)
	mux.HandleFunc("POST /calibration", s.handlers.HandleCalibration)
	mux.HandleFunc("POST /motor-test", s.handlers.HandleMotorTest)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.handlers.staticFS))))
	mux.HandleFunc("GET /{$}", s.handlers.ServeIndex) // exact match for root only

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Mux(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("Dashboard listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
