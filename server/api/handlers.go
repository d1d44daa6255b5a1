// Package api implements the REST handlers for projects, docs, and tasks.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"inkwell/config"
	"inkwell/errs"
	"inkwell/events"
	"inkwell/executor"
	"inkwell/store"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Store    *store.Store
	Bus      *events.Bus
	Exec     *executor.Executor
	Logger   *slog.Logger
	Defaults config.ProviderDefaults // seeds provider settings of new projects
	Version  string
	StartAt  int64 // unix timestamp of server start
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.listProjects)
	mux.HandleFunc("POST /api/projects", h.createProject)
	mux.HandleFunc("GET /api/projects/{projectID}", h.getProject)
	mux.HandleFunc("PUT /api/projects/{projectID}", h.updateProject)
	mux.HandleFunc("DELETE /api/projects/{projectID}", h.deleteProject)

	mux.HandleFunc("GET /api/projects/{projectID}/docs", h.listDocs)
	mux.HandleFunc("POST /api/projects/{projectID}/docs", h.createDoc)
	mux.HandleFunc("POST /api/projects/{projectID}/docs/reorder", h.reorderDocs)
	mux.HandleFunc("GET /api/projects/{projectID}/docs/{docID}", h.getDoc)
	mux.HandleFunc("PUT /api/projects/{projectID}/docs/{docID}", h.updateDoc)
	mux.HandleFunc("DELETE /api/projects/{projectID}/docs/{docID}", h.deleteDoc)
	mux.HandleFunc("POST /api/projects/{projectID}/docs/{docID}/move", h.moveDoc)

	mux.HandleFunc("GET /api/projects/{projectID}/tasks", h.listTasks)
	mux.HandleFunc("POST /api/projects/{projectID}/tasks", h.createTask)
	mux.HandleFunc("GET /api/projects/{projectID}/tasks/{taskID}", h.getTask)
	mux.HandleFunc("PUT /api/projects/{projectID}/tasks/{taskID}", h.updateTask)
	mux.HandleFunc("DELETE /api/projects/{projectID}/tasks/{taskID}", h.deleteTask)
	mux.HandleFunc("POST /api/projects/{projectID}/tasks/{taskID}/apply", h.applyTask)
	mux.HandleFunc("POST /api/projects/{projectID}/tasks/{taskID}/execute", h.executeTask)

	mux.HandleFunc("GET /api/events/history", h.eventHistory)

	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
}

// envelope is the JSON shape of every non-streaming API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData writes a successful envelope around data.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError maps err's kind to an HTTP status and writes a failure envelope.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), envelope{Success: false, Message: err.Error()})
}

// statusFor maps an error kind to its HTTP status code.
func statusFor(err error) int {
	switch {
	case errs.IsKind(err, errs.KindPrecondition):
		return http.StatusBadRequest
	case errs.IsKind(err, errs.KindConfig):
		return http.StatusBadRequest
	case errs.IsKind(err, errs.KindNotFound):
		return http.StatusNotFound
	case errs.IsKind(err, errs.KindConflict):
		return http.StatusConflict
	case errs.IsKind(err, errs.KindProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// --- Event history ---

func (h *Handlers) eventHistory(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}

	evs := h.Bus.History(projectID, limit)
	if evs == nil {
		evs = []events.Event{}
	}
	writeData(w, http.StatusOK, evs)
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  h.Version,
		"start_at": h.StartAt,
	})
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}
