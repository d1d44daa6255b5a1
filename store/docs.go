package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"inkwell/errs"
)

// maxTreeDepth bounds ancestor walks so corrupted parent links can never
// loop forever.
const maxTreeDepth = 64

// CreateDoc persists a new doc and sets its ID and timestamps.
func (s *Store) CreateDoc(d *Doc) (string, error) {
	d.ID = newID()
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	history, _ := json.Marshal(d.History)
	_, err := s.db.Exec(`
		INSERT INTO docs
			(id, project_id, parent_id, title, type, content, summary, outline,
			 improvement, notes, other, synopsis, priority, archived, history,
			 created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.ProjectID, d.ParentID, d.Title, string(d.Type),
		d.Content, d.Summary, d.Outline, d.Improvement, d.Notes, d.Other, d.Synopsis,
		d.Priority, boolInt(d.Archived), string(history),
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert doc: %w", err)
	}
	return d.ID, nil
}

// GetDoc retrieves a doc by ID.
func (s *Store) GetDoc(id string) (*Doc, error) {
	row := s.db.QueryRow(`SELECT * FROM docs WHERE id = ?`, id)
	d, err := scanDoc(row)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.KindNotFound, "doc %s not found", id)
	}
	return d, err
}

// ListDocs returns a project's docs ordered by priority then creation
// time. When parentID is non-empty only direct children are returned.
func (s *Store) ListDocs(projectID, parentID string) ([]*Doc, error) {
	query := `SELECT * FROM docs WHERE project_id=?`
	args := []any{projectID}
	if parentID != "" {
		query += ` AND parent_id=?`
		args = append(args, parentID)
	}
	query += ` ORDER BY priority ASC, created_at ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list docs: %w", err)
	}
	defer rows.Close()

	var docs []*Doc
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDoc saves changes to an existing doc, bumping UpdatedAt.
func (s *Store) UpdateDoc(d *Doc) error {
	d.UpdatedAt = time.Now().UTC()
	history, _ := json.Marshal(d.History)
	res, err := s.db.Exec(`
		UPDATE docs SET
			parent_id=?, title=?, type=?, content=?, summary=?, outline=?,
			improvement=?, notes=?, other=?, synopsis=?, priority=?, archived=?,
			history=?, updated_at=?
		WHERE id=?`,
		d.ParentID, d.Title, string(d.Type),
		d.Content, d.Summary, d.Outline, d.Improvement, d.Notes, d.Other, d.Synopsis,
		d.Priority, boolInt(d.Archived), string(history), d.UpdatedAt,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("update doc: %w", err)
	}
	return requireRow(res, "doc", d.ID)
}

// DeleteDoc removes a doc by ID. Children are reparented to the deleted
// doc's parent so the tree stays connected.
func (s *Store) DeleteDoc(id string) error {
	d, err := s.GetDoc(id)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`UPDATE docs SET parent_id=? WHERE parent_id=?`, d.ParentID, id); err != nil {
		return fmt.Errorf("reparent children: %w", err)
	}
	res, err := s.db.Exec(`DELETE FROM docs WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete doc: %w", err)
	}
	return requireRow(res, "doc", id)
}

// ReorderDocs renumbers the priorities of the given docs to match the
// supplied order. IDs not in the project are rejected.
func (s *Store) ReorderDocs(projectID string, orderedIDs []string) error {
	now := time.Now().UTC()
	for i, id := range orderedIDs {
		res, err := s.db.Exec(
			`UPDATE docs SET priority=?, updated_at=? WHERE id=? AND project_id=?`,
			i, now, id, projectID,
		)
		if err != nil {
			return fmt.Errorf("reorder doc %s: %w", id, err)
		}
		if err := requireRow(res, "doc", id); err != nil {
			return err
		}
	}
	return nil
}

// MoveDoc reparents a doc. A move that would make the doc its own
// ancestor is rejected; the ancestor walk carries a visited set and a
// depth bound so malformed data cannot loop it.
func (s *Store) MoveDoc(docID, newParentID string) error {
	d, err := s.GetDoc(docID)
	if err != nil {
		return err
	}
	if newParentID != "" {
		parent, err := s.GetDoc(newParentID)
		if err != nil {
			return err
		}
		if parent.ProjectID != d.ProjectID {
			return errs.New(errs.KindPrecondition, "cannot move doc to another project")
		}
		if err := s.checkAncestry(docID, newParentID); err != nil {
			return err
		}
	}
	d.ParentID = newParentID
	return s.UpdateDoc(d)
}

// checkAncestry rejects the move when docID appears on newParentID's
// ancestor chain (including newParentID itself).
func (s *Store) checkAncestry(docID, newParentID string) error {
	visited := map[string]struct{}{}
	current := newParentID
	for depth := 0; current != ""; depth++ {
		if current == docID {
			return errs.New(errs.KindConflict, "move would create a cycle in the doc tree")
		}
		if _, seen := visited[current]; seen {
			return errs.New(errs.KindConflict, "doc tree parent chain contains a cycle")
		}
		if depth >= maxTreeDepth {
			return errs.Newf(errs.KindConflict, "doc tree deeper than %d levels", maxTreeDepth)
		}
		visited[current] = struct{}{}

		ancestor, err := s.GetDoc(current)
		if err != nil {
			if errs.IsKind(err, errs.KindNotFound) {
				return nil // dangling parent link ends the chain
			}
			return err
		}
		current = ancestor.ParentID
	}
	return nil
}

// AppendRevision records the previous value of a doc field in the
// append-only history log and overwrites the field.
func (s *Store) AppendRevision(docID string, field FieldType, text string) error {
	d, err := s.GetDoc(docID)
	if err != nil {
		return err
	}
	if prev := d.Field(field); prev != "" {
		d.History = append(d.History, Revision{
			Field:     field,
			Content:   prev,
			CreatedAt: time.Now().UTC(),
		})
	}
	if !d.SetField(field, text) {
		return errs.Newf(errs.KindPrecondition, "unknown doc field %q", field)
	}
	return s.UpdateDoc(d)
}

func scanDoc(sc scanner) (*Doc, error) {
	var d Doc
	var docType, historyJSON string
	var archived int

	err := sc.Scan(
		&d.ID, &d.ProjectID, &d.ParentID, &d.Title, &docType,
		&d.Content, &d.Summary, &d.Outline, &d.Improvement,
		&d.Notes, &d.Other, &d.Synopsis,
		&d.Priority, &archived, &historyJSON,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Type = DocType(docType)
	d.Archived = archived != 0
	_ = json.Unmarshal([]byte(historyJSON), &d.History)
	return &d, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
