package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/store"
)

func (req WatchedFolderRequest) draft() store.WatchedFolderDraft {
	return store.WatchedFolderDraft{
		Path:                req.Path,
		IsActive:            req.IsActive,
		AutoOrganize:        req.AutoOrganize,
		ConfidenceThreshold: req.ConfidenceThreshold,
		IncludeSubdirs:      req.IncludeSubdirs,
		FileTypeFilter:      req.FileTypeFilter,
		NotifyOnOrganize:    req.NotifyOnOrganize,
	}
}

// ListWatched handles GET /api/watched.
func (h *Handler) ListWatched(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	folders, err := h.db.ListWatchedFolders(activeOnly)
	if err != nil {
		writeStoreErr(w, "list watched", err)
		return
	}
	if folders == nil {
		folders = []models.WatchedFolder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"folders": folders,
		"total":   len(folders),
	})
}

// CreateWatched handles POST /api/watched.
func (h *Handler) CreateWatched(w http.ResponseWriter, r *http.Request) {
	var req WatchedFolderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	folder, err := h.db.CreateWatchedFolder(req.draft())
	if err != nil {
		writeStoreErr(w, "create watched", err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// GetWatched handles GET /api/watched/{id}.
func (h *Handler) GetWatched(w http.ResponseWriter, r *http.Request) {
	folder, err := h.db.GetWatchedFolder(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreErr(w, "get watched", err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// UpdateWatched handles PUT /api/watched/{id}.
func (h *Handler) UpdateWatched(w http.ResponseWriter, r *http.Request) {
	var req WatchedFolderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	folder, err := h.db.UpdateWatchedFolder(chi.URLParam(r, "id"), req.draft())
	if err != nil {
		writeStoreErr(w, "update watched", err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// DeleteWatched handles DELETE /api/watched/{id}.
func (h *Handler) DeleteWatched(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteWatchedFolder(chi.URLParam(r, "id")); err != nil {
		writeStoreErr(w, "delete watched", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListActivity handles GET /api/watched/{id}/activity.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.ListActivity(chi.URLParam(r, "id"), queryInt(r, "limit"))
	if err != nil {
		writeStoreErr(w, "list activity", err)
		return
	}
	if rows == nil {
		rows = []models.WatchActivity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": rows})
}
