package api

import (
	"net/http"

	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/store"
)

// ListHistory handles GET /api/history.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.OrganizedFilter{
		Status:       models.OrganizedStatus(q.Get("status")),
		TargetFolder: q.Get("target_folder"),
		FileType:     q.Get("file_type"),
		Limit:        queryInt(r, "limit"),
		Offset:       queryInt(r, "offset"),
	}
	rows, err := h.db.ListOrganized(f)
	if err != nil {
		writeStoreErr(w, "list history", err)
		return
	}
	total, err := h.db.CountOrganized(f)
	if err != nil {
		writeStoreErr(w, "count history", err)
		return
	}
	if rows == nil {
		rows = []models.OrganizedFile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files": rows,
		"total": total,
	})
}

// RecentHistory handles GET /api/history/recent.
func (h *Handler) RecentHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.RecentMoved(queryInt(r, "limit"))
	if err != nil {
		writeStoreErr(w, "recent history", err)
		return
	}
	if rows == nil {
		rows = []models.OrganizedFile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": rows})
}

// HistoryStats handles GET /api/history/stats.
func (h *Handler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.db.LedgerStats()
	if err != nil {
		writeStoreErr(w, "history stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SearchHistory handles GET /api/history/search.
func (h *Handler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	hits, err := h.db.SearchHistory(q, queryInt(r, "limit"))
	if err != nil {
		writeStoreErr(w, "search history", err)
		return
	}
	if hits == nil {
		hits = []store.HistoryHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// PurgeHistory handles POST /api/history/purge.
func (h *Handler) PurgeHistory(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Days <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("days must be positive"))
		return
	}
	n, err := h.db.PurgeOlderThan(req.Days)
	if err != nil {
		writeStoreErr(w, "purge history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"purged": n})
}
