package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"inkwell/errs"
	"inkwell/events"
	"inkwell/store"
)

// docScoped fetches a doc and verifies it belongs to the project in the
// request path. A doc from another project is reported as not found.
func (h *Handlers) docScoped(projectID, docID string) (*store.Doc, error) {
	d, err := h.Store.GetDoc(docID)
	if err != nil {
		return nil, err
	}
	if d.ProjectID != projectID {
		return nil, errs.Newf(errs.KindNotFound, "doc %s not found", docID)
	}
	return d, nil
}

func (h *Handlers) listDocs(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	if _, err := h.Store.GetProject(projectID); err != nil {
		writeError(w, err)
		return
	}
	docs, err := h.Store.ListDocs(projectID, r.URL.Query().Get("parent_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []*store.Doc{}
	}
	writeData(w, http.StatusOK, docs)
}

func (h *Handlers) createDoc(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	if _, err := h.Store.GetProject(projectID); err != nil {
		writeError(w, err)
		return
	}

	var d store.Doc
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, errs.Wrap(errs.KindPrecondition, "invalid request body", err))
		return
	}
	d.ProjectID = projectID
	if strings.TrimSpace(d.Title) == "" {
		writeError(w, errs.New(errs.KindPrecondition, "doc title required"))
		return
	}
	if d.Type == "" {
		d.Type = store.DocOther
	}
	if !d.Type.Valid() {
		writeError(w, errs.Newf(errs.KindPrecondition, "unsupported doc type: %s", d.Type))
		return
	}
	if d.ParentID != "" {
		if _, err := h.docScoped(projectID, d.ParentID); err != nil {
			writeError(w, err)
			return
		}
	}

	if _, err := h.Store.CreateDoc(&d); err != nil {
		writeError(w, err)
		return
	}
	h.publishDocChanged(projectID, d.ID)
	writeData(w, http.StatusCreated, d)
}

func (h *Handlers) getDoc(w http.ResponseWriter, r *http.Request) {
	d, err := h.docScoped(r.PathValue("projectID"), r.PathValue("docID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, d)
}

func (h *Handlers) updateDoc(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	existing, err := h.docScoped(projectID, r.PathValue("docID"))
	if err != nil {
		writeError(w, err)
		return
	}
	id := existing.ID

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeError(w, errs.Wrap(errs.KindPrecondition, "invalid request body", err))
		return
	}
	existing.ID = id
	existing.ProjectID = projectID
	if !existing.Type.Valid() {
		writeError(w, errs.Newf(errs.KindPrecondition, "unsupported doc type: %s", existing.Type))
		return
	}

	if err := h.Store.UpdateDoc(existing); err != nil {
		writeError(w, err)
		return
	}
	h.publishDocChanged(projectID, id)
	writeData(w, http.StatusOK, existing)
}

func (h *Handlers) deleteDoc(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	d, err := h.docScoped(projectID, r.PathValue("docID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.DeleteDoc(d.ID); err != nil {
		writeError(w, err)
		return
	}
	h.publishDocChanged(projectID, d.ID)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "doc deleted"})
}

func (h *Handlers) reorderDocs(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.KindPrecondition, "invalid request body", err))
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, errs.New(errs.KindPrecondition, "ids required"))
		return
	}
	if err := h.Store.ReorderDocs(projectID, req.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "docs reordered"})
}

func (h *Handlers) moveDoc(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	d, err := h.docScoped(projectID, r.PathValue("docID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.KindPrecondition, "invalid request body", err))
		return
	}
	if err := h.Store.MoveDoc(d.ID, req.ParentID); err != nil {
		writeError(w, err)
		return
	}
	moved, err := h.Store.GetDoc(d.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publishDocChanged(projectID, d.ID)
	writeData(w, http.StatusOK, moved)
}

func (h *Handlers) publishDocChanged(projectID, docID string) {
	if h.Bus == nil {
		return
	}
	h.Bus.Publish(events.Event{
		Type:      events.TypeDocChanged,
		ProjectID: projectID,
		DocID:     docID,
		Timestamp: time.Now().UTC(),
	})
}
