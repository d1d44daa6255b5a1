package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"inkwell/errs"
)

// CreateTask persists a new task in the pending state and sets its ID
// and timestamps.
func (s *Store) CreateTask(t *Task) (string, error) {
	t.ID = newID()
	t.Status = StatusPending
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	related, _ := json.Marshal(t.RelatedDocs)
	_, err := s.db.Exec(`
		INSERT INTO tasks
			(id, project_id, doc_id, type, status, prompt, result, error,
			 related_docs, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, t.DocID, string(t.Type), string(t.Status),
		t.Prompt, t.Result, t.Error, string(related),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return t.ID, nil
}

// GetTask retrieves a task scoped to its project. A task belonging to a
// different project is reported as not found.
func (s *Store) GetTask(projectID, taskID string) (*Task, error) {
	row := s.db.QueryRow(`SELECT * FROM tasks WHERE id=? AND project_id=?`, taskID, projectID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.KindNotFound, "task %s not found", taskID)
	}
	return t, err
}

// ListTasks returns a project's tasks, optionally filtered by doc and
// status, newest first.
func (s *Store) ListTasks(projectID, docID string, status Status) ([]*Task, error) {
	query := `SELECT * FROM tasks WHERE project_id=?`
	args := []any{projectID}
	if docID != "" {
		query += ` AND doc_id=?`
		args = append(args, docID)
	}
	if status != "" {
		query += ` AND status=?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask saves user edits (type, prompt, related docs) to a task.
// Only pending tasks may be edited.
func (s *Store) UpdateTask(t *Task) error {
	current, err := s.GetTask(t.ProjectID, t.ID)
	if err != nil {
		return err
	}
	if current.Status != StatusPending {
		return errs.Newf(errs.KindConflict, "task is already %s", current.Status)
	}

	t.UpdatedAt = time.Now().UTC()
	related, _ := json.Marshal(t.RelatedDocs)
	res, err := s.db.Exec(`
		UPDATE tasks SET type=?, prompt=?, related_docs=?, updated_at=?
		WHERE id=? AND project_id=?`,
		string(t.Type), t.Prompt, string(related), t.UpdatedAt,
		t.ID, t.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRow(res, "task", t.ID)
}

// taskStatus reads a task's current status.
func (s *Store) taskStatus(taskID string) (Status, error) {
	row := s.db.QueryRow(`SELECT status FROM tasks WHERE id=?`, taskID)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return "", errs.Newf(errs.KindNotFound, "task %s not found", taskID)
		}
		return "", fmt.Errorf("read task status: %w", err)
	}
	return Status(raw), nil
}

// UpdateTaskStatus commits a lifecycle transition along with the task's
// result and error message. Illegal transitions are rejected. The write
// is a compare-and-swap on the expected current status, so concurrent
// callers racing for the same transition see exactly one winner.
func (s *Store) UpdateTaskStatus(taskID string, status Status, result, errMsg string) error {
	current, err := s.taskStatus(taskID)
	if err != nil {
		return err
	}
	if !CanTransition(current, status) {
		return errs.Newf(errs.KindConflict, "task is already %s", current)
	}

	res, err := s.db.Exec(
		`UPDATE tasks SET status=?, result=?, error=?, updated_at=? WHERE id=? AND status=?`,
		string(status), result, errMsg, time.Now().UTC(), taskID, string(current),
	)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if n == 0 {
		// Lost the race: another caller moved the task first.
		if fresh, err := s.taskStatus(taskID); err == nil {
			current = fresh
		}
		return errs.Newf(errs.KindConflict, "task is already %s", current)
	}
	return nil
}

// SetTaskResult writes the running partial result of a generating task.
// It never touches status so a concurrent terminal commit wins.
func (s *Store) SetTaskResult(taskID, result string) error {
	res, err := s.db.Exec(
		`UPDATE tasks SET result=?, updated_at=? WHERE id=? AND status=?`,
		result, time.Now().UTC(), taskID, string(StatusGenerating),
	)
	if err != nil {
		return fmt.Errorf("write partial result: %w", err)
	}
	return requireRow(res, "task", taskID)
}

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(projectID, taskID string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id=? AND project_id=?`, taskID, projectID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRow(res, "task", taskID)
}

func scanTask(sc scanner) (*Task, error) {
	var t Task
	var taskType, status, relatedJSON string

	err := sc.Scan(
		&t.ID, &t.ProjectID, &t.DocID, &taskType, &status,
		&t.Prompt, &t.Result, &t.Error, &relatedJSON,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Type = TaskType(taskType)
	t.Status = Status(status)
	_ = json.Unmarshal([]byte(relatedJSON), &t.RelatedDocs)
	return &t, nil
}
