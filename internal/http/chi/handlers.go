package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"github.com/marcelsud/webhook-courier/event"
	"github.com/marcelsud/webhook-courier/vendors"
)

// Handlers sets up the event API routes.
// A nil registry disables the known-vendor check on enqueue.
func Handlers(ctx context.Context, eventService event.UseCase, registry *vendors.Registry) *chi.Mux {
	logger := httplog.NewLogger("webhook-courier", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/events", postEvent(eventService, registry))
		r.Method(http.MethodGet, "/events/{id}", getEvent(eventService))
		r.Method(http.MethodGet, "/vendors/{vendor_id}/events", getVendorEvents(eventService))
	})

	return r
}
