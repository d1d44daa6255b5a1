package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"inkwell/errs"
	"inkwell/store"
)

func (h *Handlers) listProjects(w http.ResponseWriter, _ *http.Request) {
	projects, err := h.Store.ListProjects()
	if err != nil {
		writeError(w, err)
		return
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	writeData(w, http.StatusOK, projects)
}

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request) {
	var p store.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, errs.Wrap(errs.KindPrecondition, "invalid request body", err))
		return
	}
	if strings.TrimSpace(p.Name) == "" {
		writeError(w, errs.New(errs.KindPrecondition, "project name required"))
		return
	}
	h.applyProviderDefaults(&p.Provider)
	if _, err := h.Store.CreateProject(&p); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

// applyProviderDefaults fills provider fields the request left empty
// from the configured defaults. The API key is never defaulted: it is
// per-project material the caller must supply.
func (h *Handlers) applyProviderDefaults(pc *store.ProviderConfig) {
	if pc.Name == "" {
		pc.Name = h.Defaults.Name
	}
	if pc.BaseURL == "" {
		pc.BaseURL = h.Defaults.BaseURL
	}
	if pc.Model == "" {
		pc.Model = h.Defaults.Model
	}
	if pc.MaxTokens == 0 {
		pc.MaxTokens = h.Defaults.MaxTokens
	}
	if pc.Temperature == 0 {
		pc.Temperature = h.Defaults.Temperature
	}
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProject(r.PathValue("projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *Handlers) updateProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("projectID")
	existing, err := h.Store.GetProject(id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Decode partial update over the existing project
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeError(w, errs.Wrap(errs.KindPrecondition, "invalid request body", err))
		return
	}
	existing.ID = id

	if err := h.Store.UpdateProject(existing); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, existing)
}

func (h *Handlers) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteProject(r.PathValue("projectID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "project deleted"})
}
