package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/ordna/internal/apperr"
	"github.com/halvard/ordna/internal/fileservice"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/organizer"
	"github.com/halvard/ordna/internal/scan"
	"github.com/halvard/ordna/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *fileservice.Service
	db  *store.DB
}

// NewHandler creates a new Handler.
func NewHandler(svc *fileservice.Service, db *store.DB) *Handler {
	return &Handler{svc: svc, db: db}
}

// writeStoreErr maps store sentinels to HTTP statuses; anything else is
// logged and reported as a 500.
func writeStoreErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func (req RuleRequest) draft() store.RuleDraft {
	return store.RuleDraft{
		Name:           req.Name,
		Type:           req.Type,
		Pattern:        req.Pattern,
		ExcludePattern: req.ExcludePattern,
		TargetType:     req.TargetType,
		TargetID:       req.TargetID,
		Priority:       req.Priority,
		IsActive:       req.IsActive,
		Notes:          req.Notes,
	}
}

// ListRules handles GET /api/rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.RuleFilter{
		Type:            models.RuleType(q.Get("type")),
		IncludeInactive: q.Get("include_inactive") == "true",
	}
	rules, err := h.db.ListRules(f)
	if err != nil {
		writeStoreErr(w, "list rules", err)
		return
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	writeJSON(w, http.StatusOK, RuleListResponse{Rules: rules, Total: len(rules)})
}

// CreateRule handles POST /api/rules.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rule, err := h.db.CreateRule(req.draft())
	if err != nil {
		writeStoreErr(w, "create rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// GetRule handles GET /api/rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.db.GetRule(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreErr(w, "get rule", err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// UpdateRule handles PUT /api/rules/{id}.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rule, err := h.db.UpdateRule(chi.URLParam(r, "id"), req.draft())
	if err != nil {
		writeStoreErr(w, "update rule", err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DeleteRule handles DELETE /api/rules/{id}.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteRule(chi.URLParam(r, "id")); err != nil {
		writeStoreErr(w, "delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleRule handles POST /api/rules/{id}/toggle.
func (h *Handler) ToggleRule(w http.ResponseWriter, r *http.Request) {
	active, err := h.db.ToggleRule(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreErr(w, "toggle rule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_active": active})
}

// ResetMatches handles POST /api/rules/{id}/reset-matches.
func (h *Handler) ResetMatches(w http.ResponseWriter, r *http.Request) {
	if err := h.db.ResetMatchCount(chi.URLParam(r, "id")); err != nil {
		writeStoreErr(w, "reset matches", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Scan handles POST /api/scan.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Root == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("root is required"))
		return
	}
	summary, err := h.svc.ScanDirectory(r.Context(), req.Root, req.MaxDepth)
	if err != nil {
		writeStoreErr(w, "scan", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Classify handles POST /api/classify: a one-off classification without
// touching any session.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	desc, err := scan.Describe(req.Path)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	s, err := h.svc.Classify(desc)
	if err != nil {
		writeStoreErr(w, "classify", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListScanned handles GET /api/sessions/{sessionID}/files.
func (h *Handler) ListScanned(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ScannedFilter{
		Decision: models.Decision(q.Get("decision")),
		FileType: q.Get("file_type"),
	}
	if v := q.Get("has_suggestion"); v != "" {
		has := v == "true"
		f.HasSuggestion = &has
	}
	files, err := h.db.ListScanned(chi.URLParam(r, "sessionID"), f)
	if err != nil {
		writeStoreErr(w, "list scanned", err)
		return
	}
	if files == nil {
		files = []models.ScannedFile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files": files,
		"total": len(files),
	})
}

// SessionStats handles GET /api/sessions/{sessionID}/stats.
func (h *Handler) SessionStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.db.Stats(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreErr(w, "session stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ClearSession handles DELETE /api/sessions/{sessionID}.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	n, err := h.db.ClearSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeStoreErr(w, "clear session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// SetDecision handles POST /api/files/{id}/decision.
func (h *Handler) SetDecision(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	file, err := h.svc.Decide(chi.URLParam(r, "id"), req.Decision, req.TargetFolder)
	if err != nil {
		writeStoreErr(w, "set decision", err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// Organize handles POST /api/organize.
func (h *Handler) Organize(w http.ResponseWriter, r *http.Request) {
	var req OrganizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("scan_session_id is required"))
		return
	}
	if req.ConflictPolicy != "" && !req.ConflictPolicy.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown conflict_policy"))
		return
	}
	results, err := h.svc.OrganizeSession(r.Context(), req.SessionID, organizer.Options{
		ConflictPolicy: req.ConflictPolicy,
		DryRun:         req.DryRun,
	})
	if err != nil {
		writeStoreErr(w, "organize", err)
		return
	}
	resp := OrganizeResponse{Results: results}
	if resp.Results == nil {
		resp.Results = []organizer.Result{}
	}
	for _, res := range results {
		switch res.Outcome {
		case organizer.OutcomeSuccess:
			resp.Success++
		case organizer.OutcomeSkipped:
			resp.Skipped++
		case organizer.OutcomeFailure:
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Undo handles POST /api/history/{id}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.svc.Undo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreErr(w, "undo", err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
