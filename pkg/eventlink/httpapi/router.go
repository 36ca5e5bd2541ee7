// Package httpapi exposes a small debug and query API over an eventlink
// node: health, pending request statistics, the compensation ledger, post
// counters, read-model assembly, and event injection.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/randalmurphal/eventlink/pkg/eventlink/compensation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/correlation"
	"github.com/randalmurphal/eventlink/pkg/eventlink/counter"
	"github.com/randalmurphal/eventlink/pkg/eventlink/event"
	"github.com/randalmurphal/eventlink/pkg/eventlink/readmodel"
)

// Deps are the node components the API reads from. Nil components disable
// their routes with 404.
type Deps struct {
	Requests  *correlation.Store
	Ledger    compensation.Ledger
	Counters  counter.Store
	Assembler *readmodel.Assembler
	Posts     readmodel.PostLoader
	Bus       event.EventBus
	Catalog   *event.Catalog
	Logger    *slog.Logger
}

// NewRouter builds the API handler.
func NewRouter(d Deps) http.Handler {
	h := newHandler(d)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok") })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready") })

	r.Route("/v1", func(r chi.Router) {
		if d.Requests != nil {
			r.Get("/requests/stats", h.requestStats)
		}
		if d.Ledger != nil {
			r.Get("/compensations", h.listCompensations)
			r.Get("/compensations/{transaction_id}", h.getCompensation)
		}
		if d.Counters != nil {
			r.Get("/posts/{post_id}/counters", h.getCounters)
		}
		if d.Assembler != nil {
			r.Post("/posts/assemble", h.assemblePosts)
			if d.Posts != nil {
				r.Get("/users/{user_id}/bookmarks", h.bookmarks)
			}
		}
		if d.Bus != nil {
			r.Post("/events", h.publishEvent)
		}
	})
	return r
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
