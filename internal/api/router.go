package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/ordna/internal/fileservice"
	"github.com/halvard/ordna/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *fileservice.Service, db *store.DB, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, db)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Rules CRUD.
	r.Get("/rules", h.ListRules)
	r.Post("/rules", h.CreateRule)
	r.Get("/rules/{id}", h.GetRule)
	r.Put("/rules/{id}", h.UpdateRule)
	r.Delete("/rules/{id}", h.DeleteRule)
	r.Post("/rules/{id}/toggle", h.ToggleRule)
	r.Post("/rules/{id}/reset-matches", h.ResetMatches)

	// Scan and classification.
	r.Post("/scan", h.Scan)
	r.Post("/classify", h.Classify)

	// Session working set.
	r.Get("/sessions/{sessionID}/files", h.ListScanned)
	r.Get("/sessions/{sessionID}/stats", h.SessionStats)
	r.Delete("/sessions/{sessionID}", h.ClearSession)
	r.Post("/files/{id}/decision", h.SetDecision)

	// Organize and undo.
	r.Post("/organize", h.Organize)
	r.Post("/history/{id}/undo", h.Undo)

	// History ledger.
	r.Get("/history", h.ListHistory)
	r.Get("/history/recent", h.RecentHistory)
	r.Get("/history/stats", h.HistoryStats)
	r.Get("/history/search", h.SearchHistory)
	r.Post("/history/purge", h.PurgeHistory)

	// Watched folders.
	r.Get("/watched", h.ListWatched)
	r.Post("/watched", h.CreateWatched)
	r.Get("/watched/{id}", h.GetWatched)
	r.Put("/watched/{id}", h.UpdateWatched)
	r.Delete("/watched/{id}", h.DeleteWatched)
	r.Get("/watched/{id}/activity", h.ListActivity)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
