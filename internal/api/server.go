package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/extract", h.Extract).Methods("POST", "OPTIONS")
	api.HandleFunc("/history", h.History).Methods("GET", "OPTIONS")
	api.HandleFunc("/stats", h.Stats).Methods("GET", "OPTIONS")

	r.Use(h.logRequests)
	r.Use(corsMiddleware)

	return r
}

// DefaultShutdownTimeout is how long Serve waits for in-flight requests
// when no ShutdownTimeout is set.
const DefaultShutdownTimeout = 10 * time.Second

// Serve runs the API on addr until ctx is cancelled, then shuts down
// gracefully.
func (h *Handler) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.serve(ctx, ln)
}

// serve runs the API on ln and waits up to ShutdownTimeout for in-flight
// requests after ctx ends. The caller must not release what handlers use
// before serve returns.
func (h *Handler) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     h.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// Extraction can take up to one browser timeout per worker round.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		h.logger.Printf("listening on http://%s", ln.Addr())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := h.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	h.logger.Printf("server stopped")
	return nil
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
