// Package httpapi implements the HTTP+SSE service surface: an
// unauthenticated /health probe, a bearer-token-gated /api/* JSON surface
// over the knowledge subsystem, and an /api/events SSE stream attaching
// both event buses. Uses Go 1.22 ServeMux routing, security headers, and
// graceful shutdown on SIGINT/SIGTERM; there is no HTML template rendering
// anywhere in this surface, only JSON.
package httpapi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/config"
	"github.com/yologdev/yocore/internal/embeddings"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/storage"
)

// NewServer builds the HTTP server: routes, bearer-auth gate on /api/*,
// and security headers on every response.
func NewServer(
	backend storage.Backend,
	engine *embeddings.Engine,
	watcher *events.Bus[events.WatcherEvent],
	ai *events.Bus[events.AiEvent],
	instance *clock.InstanceMetadata,
	cfg *config.Config,
	version string,
	log *zap.Logger,
) *http.Server {
	h := NewHandlers(backend, engine, watcher, ai, instance, version, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HandleHealth)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/projects", h.HandleListProjects)
	api.HandleFunc("GET /api/projects/{id}/memories", h.HandleListMemories)
	api.HandleFunc("GET /api/projects/{id}/skills", h.HandleListSkills)
	api.HandleFunc("GET /api/memories/search", h.HandleSearchMemories)
	api.HandleFunc("GET /api/sessions/{id}/context", h.HandleGetSessionContext)
	api.HandleFunc("PUT /api/sessions/{id}/context", h.HandlePutSessionContext)
	api.HandleFunc("GET /api/events", h.HandleEvents)

	mux.Handle("/api/", bearerAuth(cfg.Server.APIKey, api))

	handler := securityHeaders(mux)

	return &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handler,
	}
}

// bearerAuth rejects requests without a matching `Authorization: Bearer
// <key>` header. An empty configured key disables the check. Comparison is constant-time; the submitted token is never
// logged.
func bearerAuth(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) {
			renderError(w, errors.NewUnauthorized())
			return
		}
		token := header[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			renderError(w, errors.NewUnauthorized())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on
// SIGINT/SIGTERM, draining in-flight requests within a grace window
// (default 5s).
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("yocore HTTP+SSE surface running at http://%s", srv.Addr)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
