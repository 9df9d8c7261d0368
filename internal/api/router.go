// Package api exposes the chat proxy and the intake gateway over HTTP, plus
// health, metrics and the staff MCP tools.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/learningtriangle/ltgate/internal/chat"
	"github.com/learningtriangle/ltgate/internal/intake"
	"github.com/learningtriangle/ltgate/internal/metrics"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the handlers' collaborators. All of them are built once at
// startup.
type Deps struct {
	Chat    *chat.Service
	Gateway *intake.Gateway
	Store   Pinger
}

// NewHandler returns the public HTTP surface.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(recoverPanics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(recordMetrics)

	r.MethodNotAllowed(methodNotAllowed(chat.MsgMethodNotAllowed))

	r.Options("/chat", preflight)
	r.Post("/chat", handleChat(deps.Chat))

	r.Options("/gateway", preflight)
	r.Get("/gateway", handleGateway(deps.Gateway))
	r.Post("/gateway", handleGateway(deps.Gateway))

	r.Get("/health", handleHealth(deps.Store))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				slog.Warn("health check: store unreachable", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// recordMetrics counts every request by its matched route pattern.
func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(route, r.Method, status, time.Since(start))
	})
}
