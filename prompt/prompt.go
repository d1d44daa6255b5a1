// Package prompt assembles chat turns for task execution from a task's
// related documents and its target document.
package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"inkwell/errs"
	"inkwell/provider"
	"inkwell/store"
)

// DocSource provides read access to docs during assembly.
type DocSource interface {
	GetDoc(id string) (*store.Doc, error)
}

var titleCaser = cases.Title(language.English)

// Label renders a field type as a human-readable header label.
func Label[T ~string](v T) string {
	return titleCaser.String(string(v))
}

const (
	relatedIntroUser      = "Here are some related documents and excerpts. Use them as reference for the task that follows."
	relatedIntroAssistant = "Understood. I will treat these documents as reference material."
	relatedAck            = "Noted."
)

// System returns the system turn text for a task type. Content tasks get
// a fiction-writing persona; everything else gets an analysis persona.
func System(t store.TaskType) string {
	if t == store.TaskContent {
		return "You are a skilled fiction writer. Write vivid, coherent prose that " +
			"stays consistent with the reference documents you are given. " +
			"Complete the task below:\n\n"
	}
	return "You are a meticulous writing assistant and literary analyst. Work only " +
		"from the material you are given and complete the task below:\n\n"
}

// Assemble builds the ordered turn list for a task: a fixed introduction
// pair, one user/assistant pair per related document (in stored order),
// and the task-type-specific final instruction turn.
//
// Related documents that no longer exist contribute an empty body rather
// than failing the task. A missing target document is fatal. Task types
// that require a prompt are rejected before any document is read.
func Assemble(task *store.Task, docs DocSource) ([]provider.Message, error) {
	if !task.Type.Valid() {
		return nil, errs.Newf(errs.KindPrecondition, "unsupported task type: %s", task.Type)
	}
	if task.Type.RequiresPrompt() && strings.TrimSpace(task.Prompt) == "" {
		return nil, errs.Newf(errs.KindPrecondition, "%s must have a prompt", task.Type)
	}

	target, err := docs.GetDoc(task.DocID)
	if err != nil {
		return nil, err
	}

	turns := []provider.Message{
		{Role: provider.RoleUser, Content: relatedIntroUser},
		{Role: provider.RoleAssistant, Content: relatedIntroAssistant},
	}
	for _, ref := range task.RelatedDocs {
		turns = append(turns,
			provider.Message{Role: provider.RoleUser, Content: relatedTurn(ref, docs)},
			provider.Message{Role: provider.RoleAssistant, Content: relatedAck},
		)
	}

	final, err := finalTurn(task, target)
	if err != nil {
		return nil, err
	}
	turns = append(turns, provider.Message{Role: provider.RoleUser, Content: final})
	return turns, nil
}

// relatedTurn renders one related-document reference as a user turn.
// The header carries the document title and the referenced field label.
func relatedTurn(ref store.DocRef, docs DocSource) string {
	title := ref.DocID
	body := ""
	if doc, err := docs.GetDoc(ref.DocID); err == nil {
		title = doc.Title
		body = doc.Field(ref.Field)
	}
	return fmt.Sprintf("# %s (%s)\n\n%s", title, Label(ref.Field), body)
}

// finalTurn builds the task-type-specific instruction turn.
func finalTurn(task *store.Task, target *store.Doc) (string, error) {
	content := target.Content

	switch task.Type {
	case store.TaskContent:
		if content != "" {
			return fmt.Sprintf(
				"Here is the existing content of the document:\n\n%s\n\n%s",
				content, task.Prompt), nil
		}
		return task.Prompt, nil

	case store.TaskOutline:
		return fmt.Sprintf(
			"Generate an outline for the document %s:\n\n%s",
			target.Title, content), nil

	case store.TaskImprovement:
		instruction := task.Prompt
		if strings.TrimSpace(instruction) == "" {
			instruction = "Review the text above. Score it out of 100 across plot, " +
				"pacing, characterization, and prose. Compare it to well-known works " +
				"of its kind and assess where it stands. Return markdown."
		}
		return fmt.Sprintf("%s\n\n%s", content, instruction), nil

	case store.TaskNotes, store.TaskOther:
		return fmt.Sprintf("%s\n\n%s", content, task.Prompt), nil

	case store.TaskSynopsis:
		return fmt.Sprintf(
			"%s\n\nGenerate a synopsis of the document in markdown.", content), nil

	case store.TaskSummary:
		return fmt.Sprintf(
			"Write a detailed summary of the following document. The summary will "+
				"seed prompts for later documents, so include the plot of each chapter "+
				"and notes on every character that appears. State only facts from the "+
				"text itself: no speculation, no commentary. Return markdown.\n\n"+
				"Title: %s\nType: %s\nContent: %s",
			target.Title, Label(target.Type), content), nil
	}

	return "", errs.Newf(errs.KindPrecondition, "unsupported task type: %s", task.Type)
}
