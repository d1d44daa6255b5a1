// Package store persists projects, docs, and tasks for the writing workspace.
package store

import "time"

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether the task lifecycle permits from -> to.
// The only legal moves are pending -> generating and
// generating -> completed | failed.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusGenerating
	case StatusGenerating:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}

// TaskType is the kind of generation or analysis work a task requests.
type TaskType string

const (
	TaskContent     TaskType = "content"
	TaskSummary     TaskType = "summary"
	TaskOutline     TaskType = "outline"
	TaskImprovement TaskType = "improvement"
	TaskNotes       TaskType = "notes"
	TaskOther       TaskType = "other"
	TaskSynopsis    TaskType = "synopsis"
)

// TaskTypes lists every known task type.
var TaskTypes = []TaskType{
	TaskContent,
	TaskSummary,
	TaskOutline,
	TaskImprovement,
	TaskNotes,
	TaskOther,
	TaskSynopsis,
}

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequiresPrompt reports whether tasks of this type must carry a
// non-empty prompt before execution. Summary and improvement tasks have
// built-in instructions; everything else needs caller intent.
func (t TaskType) RequiresPrompt() bool {
	switch t {
	case TaskSummary, TaskImprovement:
		return false
	}
	return true
}

// FieldType names one of a doc's generated text fields.
type FieldType string

const (
	FieldContent     FieldType = "content"
	FieldSummary     FieldType = "summary"
	FieldOutline     FieldType = "outline"
	FieldImprovement FieldType = "improvement"
	FieldNotes       FieldType = "notes"
	FieldOther       FieldType = "other"
	FieldSynopsis    FieldType = "synopsis"
)

// Valid reports whether f names a known doc field.
func (f FieldType) Valid() bool {
	switch f {
	case FieldContent, FieldSummary, FieldOutline, FieldImprovement,
		FieldNotes, FieldOther, FieldSynopsis:
		return true
	}
	return false
}

// ResultField maps a task type to the doc field its result applies to.
func (t TaskType) ResultField() FieldType {
	return FieldType(t)
}

// DocType categorizes a doc within a project.
type DocType string

const (
	DocArticle      DocType = "article"
	DocCharacter    DocType = "character"
	DocOrganization DocType = "organization"
	DocBackground   DocType = "background"
	DocEvent        DocType = "event"
	DocItem         DocType = "item"
	DocLocation     DocType = "location"
	DocAbility      DocType = "ability"
	DocSpell        DocType = "spell"
	DocOther        DocType = "other"
	DocGroup        DocType = "group"
)

// Valid reports whether d is a known doc type.
func (d DocType) Valid() bool {
	switch d {
	case DocArticle, DocCharacter, DocOrganization, DocBackground,
		DocEvent, DocItem, DocLocation, DocAbility, DocSpell,
		DocOther, DocGroup:
		return true
	}
	return false
}

// ProviderConfig is the AI provider selection a project carries. It is
// read once per task execution and passed by value into the pipeline.
type ProviderConfig struct {
	Name        string  `json:"name"`
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Project is a writing project: a doc tree plus provider settings.
type Project struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Author    string         `json:"author,omitempty"`
	Provider  ProviderConfig `json:"provider"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Revision is one append-only history entry for a doc field overwrite.
type Revision struct {
	Field     FieldType `json:"field"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Doc is a single document in a project's hierarchy. The seven text
// fields mirror the task types that can generate them.
type Doc struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	ParentID    string     `json:"parent_id,omitempty"`
	Title       string     `json:"title"`
	Type        DocType    `json:"type"`
	Content     string     `json:"content,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Outline     string     `json:"outline,omitempty"`
	Improvement string     `json:"improvement,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Other       string     `json:"other,omitempty"`
	Synopsis    string     `json:"synopsis,omitempty"`
	Priority    int        `json:"priority"`
	Archived    bool       `json:"archived,omitempty"`
	History     []Revision `json:"history,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Field returns the doc text field named by f. The switch keeps field
// access a closed enumeration instead of string-keyed reflection.
func (d *Doc) Field(f FieldType) string {
	switch f {
	case FieldContent:
		return d.Content
	case FieldSummary:
		return d.Summary
	case FieldOutline:
		return d.Outline
	case FieldImprovement:
		return d.Improvement
	case FieldNotes:
		return d.Notes
	case FieldOther:
		return d.Other
	case FieldSynopsis:
		return d.Synopsis
	}
	return ""
}

// SetField overwrites the doc text field named by f. It reports whether
// f named a known field.
func (d *Doc) SetField(f FieldType, text string) bool {
	switch f {
	case FieldContent:
		d.Content = text
	case FieldSummary:
		d.Summary = text
	case FieldOutline:
		d.Outline = text
	case FieldImprovement:
		d.Improvement = text
	case FieldNotes:
		d.Notes = text
	case FieldOther:
		d.Other = text
	case FieldSynopsis:
		d.Synopsis = text
	default:
		return false
	}
	return true
}

// DocRef points at one text field of another doc supplied as context
// for a task. Order within a task's RelatedDocs list is caller-controlled
// and preserved verbatim.
type DocRef struct {
	DocID string    `json:"id"`
	Field FieldType `json:"type"`
}

// Task is a unit of requested AI generation work bound to one target doc.
type Task struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	DocID       string    `json:"doc_id"`
	Type        TaskType  `json:"type"`
	Status      Status    `json:"status"`
	Prompt      string    `json:"prompt,omitempty"`
	Result      string    `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	RelatedDocs []DocRef  `json:"related_docs,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
