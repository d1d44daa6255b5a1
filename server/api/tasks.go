package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"inkwell/errs"
	"inkwell/events"
	"inkwell/store"
)

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	if _, err := h.Store.GetProject(projectID); err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	status := store.Status(q.Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, errs.Newf(errs.KindPrecondition, "unsupported task status: %s", status))
		return
	}
	tasks, err := h.Store.ListTasks(projectID, q.Get("doc_id"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	writeData(w, http.StatusOK, tasks)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	if _, err := h.Store.GetProject(projectID); err != nil {
		writeError(w, err)
		return
	}

	var t store.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, errs.Wrap(errs.KindPrecondition, "invalid request body", err))
		return
	}
	t.ProjectID = projectID
	if !t.Type.Valid() {
		writeError(w, errs.Newf(errs.KindPrecondition, "unsupported task type: %s", t.Type))
		return
	}
	if t.Type.RequiresPrompt() && t.Prompt == "" {
		writeError(w, errs.Newf(errs.KindPrecondition, "%s must have a prompt", t.Type))
		return
	}
	if t.DocID != "" {
		if _, err := h.docScoped(projectID, t.DocID); err != nil {
			writeError(w, err)
			return
		}
	}

	if _, err := h.Store.CreateTask(&t); err != nil {
		writeError(w, err)
		return
	}
	if h.Bus != nil {
		h.Bus.Publish(events.Event{
			Type:      events.TypeTaskCreated,
			ProjectID: projectID,
			TaskID:    t.ID,
			Status:    t.Status,
			Timestamp: time.Now().UTC(),
		})
	}
	writeData(w, http.StatusCreated, t)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTask(r.PathValue("projectID"), r.PathValue("taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	id := r.PathValue("taskID")
	existing, err := h.Store.GetTask(projectID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Decode partial update over the existing task
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeError(w, errs.Wrap(errs.KindPrecondition, "invalid request body", err))
		return
	}
	existing.ID = id
	existing.ProjectID = projectID
	if !existing.Type.Valid() {
		writeError(w, errs.Newf(errs.KindPrecondition, "unsupported task type: %s", existing.Type))
		return
	}

	if err := h.Store.UpdateTask(existing); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, existing)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	id := r.PathValue("taskID")
	if err := h.Store.DeleteTask(projectID, id); err != nil {
		writeError(w, err)
		return
	}
	if h.Bus != nil {
		h.Bus.Publish(events.Event{
			Type:      events.TypeTaskDeleted,
			ProjectID: projectID,
			TaskID:    id,
			Timestamp: time.Now().UTC(),
		})
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "task deleted"})
}

// applyTask copies a completed task's result into its doc's field for
// that task type. The field's previous text is appended to the doc's
// revision history before it is overwritten.
func (h *Handlers) applyTask(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	t, err := h.Store.GetTask(projectID, r.PathValue("taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if t.Status != store.StatusCompleted {
		writeError(w, errs.Newf(errs.KindConflict, "task is %s, not completed", t.Status))
		return
	}
	if t.DocID == "" {
		writeError(w, errs.New(errs.KindPrecondition, "task has no target doc"))
		return
	}
	d, err := h.docScoped(projectID, t.DocID)
	if err != nil {
		writeError(w, err)
		return
	}

	field := t.Type.ResultField()
	if old := d.Field(field); old != "" {
		if err := h.Store.AppendRevision(d.ID, field, old); err != nil {
			writeError(w, err)
			return
		}
		// Re-read so the update carries the appended history.
		if d, err = h.Store.GetDoc(d.ID); err != nil {
			writeError(w, err)
			return
		}
	}
	d.SetField(field, t.Result)
	if err := h.Store.UpdateDoc(d); err != nil {
		writeError(w, err)
		return
	}
	h.publishDocChanged(projectID, d.ID)
	writeData(w, http.StatusOK, d)
}

// streamWriter defers the event-stream headers until the first delta so
// precondition failures can still answer with a JSON error.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	wrote   bool
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	if !sw.wrote {
		sw.wrote = true
		header := sw.w.Header()
		header.Set("Content-Type", "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		sw.w.WriteHeader(http.StatusOK)
	}
	return sw.w.Write(p)
}

func (sw *streamWriter) Flush() {
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// executeTask runs the task and streams each delta to the client as it
// arrives. Failures before the first delta produce a normal JSON error;
// after that the stream simply ends and the task record carries the
// failure.
func (h *Handlers) executeTask(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	taskID := r.PathValue("taskID")

	flusher, _ := w.(http.Flusher)
	sw := &streamWriter{w: w, flusher: flusher}

	if err := h.Exec.Execute(r.Context(), projectID, taskID, sw); err != nil {
		if !sw.wrote {
			writeError(w, err)
			return
		}
		h.Logger.Warn("task stream ended with error",
			slog.String("task_id", taskID), slog.Any("err", err))
		return
	}
	if !sw.wrote {
		// Empty completion: still open and close the stream cleanly.
		_, _ = sw.Write(nil)
	}
}
