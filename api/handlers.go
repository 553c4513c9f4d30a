// Package api is the control plane of the mock server: fault rules, the
// request log, store reset and the generated API docs.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-openapi/spec"
	"github.com/gorilla/mux"

	apperrors "practicelab/errors"
	"practicelab/reqlog"
	"practicelab/state"
	"practicelab/table"
)

// ApiHandler holds the shared state the control API operates on.
type ApiHandler struct {
	ruleState *state.RuleState
	log       *reqlog.Log
	store     *state.Store
	docs      *spec.Swagger
	logger    *slog.Logger
}

// NewApiHandler creates a new handler for the control API.
func NewApiHandler(rs *state.RuleState, log *reqlog.Log, store *state.Store, docs *spec.Swagger, logger *slog.Logger) *ApiHandler {
	return &ApiHandler{ruleState: rs, log: log, store: store, docs: docs, logger: logger}
}

// RegisterHandlers mounts the control API on r.
func RegisterHandlers(r *mux.Router, h *ApiHandler) {
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rules", h.GetRules).Methods(http.MethodGet)
	api.HandleFunc("/rules", h.AddRule).Methods(http.MethodPost)
	api.HandleFunc("/rules/{id}", h.UpdateRule).Methods(http.MethodPut)
	api.HandleFunc("/rules/{id}", h.DeleteRule).Methods(http.MethodDelete)
	api.HandleFunc("/rules/{id}/enable", h.EnableRule).Methods(http.MethodPost)
	api.HandleFunc("/rules/{id}/disable", h.DisableRule).Methods(http.MethodPost)
	api.HandleFunc("/logs", h.GetLogs).Methods(http.MethodGet)
	api.HandleFunc("/logs", h.ClearLogs).Methods(http.MethodDelete)
	api.HandleFunc("/store/reset", h.ResetStore).Methods(http.MethodPost)
	api.HandleFunc("/openapi.json", h.OpenAPI).Methods(http.MethodGet)
}

// Health reports liveness.
func (h *ApiHandler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetRules returns the list of current failure rules as JSON.
func (h *ApiHandler) GetRules(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ruleState.GetRules())
}

// AddRule adds a new failure rule from a JSON payload. New rules start enabled.
func (h *ApiHandler) AddRule(w http.ResponseWriter, r *http.Request) {
	var newRule state.Rule
	if err := json.NewDecoder(r.Body).Decode(&newRule); err != nil {
		h.writeError(w, apperrors.Malformed(err))
		return
	}
	newRule.Enabled = true

	added, err := h.ruleState.AddRule(newRule)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("rule added", "id", added.ID, "target", added.Target, "type", added.Failure.Type)
	h.writeJSON(w, http.StatusCreated, added)
}

// UpdateRule replaces an existing rule from a JSON payload.
func (h *ApiHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var updatedRule state.Rule
	if err := json.NewDecoder(r.Body).Decode(&updatedRule); err != nil {
		h.writeError(w, apperrors.Malformed(err))
		return
	}
	updatedRule.ID = id // The ID from the URL wins.

	found, err := h.ruleState.UpdateRule(updatedRule)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		h.writeError(w, apperrors.NotFound("Rule not found"))
		return
	}
	h.writeJSON(w, http.StatusOK, h.rule(id))
}

// EnableRule switches a rule on.
func (h *ApiHandler) EnableRule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, mux.Vars(r)["id"], true)
}

// DisableRule switches a rule off without deleting it.
func (h *ApiHandler) DisableRule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, mux.Vars(r)["id"], false)
}

func (h *ApiHandler) setEnabled(w http.ResponseWriter, id string, enabled bool) {
	found, err := h.ruleState.SetEnabled(id, enabled)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		h.writeError(w, apperrors.NotFound("Rule not found"))
		return
	}
	h.logger.Info("rule toggled", "id", id, "enabled", enabled)
	h.writeJSON(w, http.StatusOK, h.rule(id))
}

func (h *ApiHandler) rule(id string) state.Rule {
	for _, r := range h.ruleState.GetRules() {
		if r.ID == id {
			return r
		}
	}
	return state.Rule{}
}

// DeleteRule removes a rule by its ID.
func (h *ApiHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	found, err := h.ruleState.DeleteRule(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		h.writeError(w, apperrors.NotFound("Rule not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLogs pages through the request log, newest first unless sorted otherwise.
// Query parameters: search, sort, dir (asc|desc), page, perPage.
func (h *ApiHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := table.Query{
		Search:  q.Get("search"),
		SortKey: q.Get("sort"),
		Desc:    strings.EqualFold(q.Get("dir"), "desc"),
		Page:    atoiOr(q.Get("page"), 1),
		PerPage: atoiOr(q.Get("perPage"), 20),
	}

	if query.SortKey == "" {
		query.SortKey, query.Desc = "time", true
	}
	h.writeJSON(w, http.StatusOK, table.Apply(h.log.List(), query, logFields))
}

// ClearLogs empties the request log.
func (h *ApiHandler) ClearLogs(w http.ResponseWriter, _ *http.Request) {
	h.log.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// ResetStore restores the seed data.
func (h *ApiHandler) ResetStore(w http.ResponseWriter, _ *http.Request) {
	h.store.Reset()
	h.logger.Info("store reset to seed data")
	h.writeJSON(w, http.StatusOK, map[string]any{"message": "Store reset", "books": len(h.store.ListBooks())})
}

// OpenAPI serves the generated Swagger document.
func (h *ApiHandler) OpenAPI(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.docs)
}

func logFields(e reqlog.Entry) map[string]any {
	return map[string]any{
		"time":     e.Time,
		"name":     e.Name,
		"url":      e.URL,
		"method":   e.Method,
		"status":   e.Status,
		"duration": e.DurationMs,
		"fault":    e.Fault,
	}
}

func atoiOr(s string, fallback int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return fallback
}
