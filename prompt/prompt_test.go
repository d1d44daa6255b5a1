package prompt

import (
	"strings"
	"testing"

	"inkwell/errs"
	"inkwell/provider"
	"inkwell/store"
)

// fakeDocs serves docs from a map, reporting everything else missing.
type fakeDocs map[string]*store.Doc

func (f fakeDocs) GetDoc(id string) (*store.Doc, error) {
	if d, ok := f[id]; ok {
		return d, nil
	}
	return nil, errs.Newf(errs.KindNotFound, "doc %s not found", id)
}

func TestAssembleRequiresPrompt(t *testing.T) {
	docs := fakeDocs{"d1": {ID: "d1", Title: "Doc"}}

	for _, typ := range []store.TaskType{
		store.TaskContent, store.TaskOutline, store.TaskNotes,
		store.TaskOther, store.TaskSynopsis,
	} {
		task := &store.Task{DocID: "d1", Type: typ}
		_, err := Assemble(task, docs)
		if !errs.IsKind(err, errs.KindPrecondition) {
			t.Errorf("%s without prompt: expected precondition error, got %v", typ, err)
		}
	}

	// Summary and improvement have built-in instructions.
	for _, typ := range []store.TaskType{store.TaskSummary, store.TaskImprovement} {
		task := &store.Task{DocID: "d1", Type: typ}
		if _, err := Assemble(task, docs); err != nil {
			t.Errorf("%s without prompt should assemble, got %v", typ, err)
		}
	}
}

func TestAssembleContentPromptMessage(t *testing.T) {
	task := &store.Task{DocID: "d1", Type: store.TaskContent, Prompt: ""}
	_, err := Assemble(task, fakeDocs{"d1": {ID: "d1"}})
	if err == nil || !strings.Contains(err.Error(), "content must have a prompt") {
		t.Errorf("err = %v, want content must have a prompt", err)
	}
}

func TestAssembleMissingTargetIsFatal(t *testing.T) {
	task := &store.Task{DocID: "gone", Type: store.TaskSummary}
	_, err := Assemble(task, fakeDocs{})
	if !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestAssembleRelatedDocOrder(t *testing.T) {
	docs := fakeDocs{
		"target": {ID: "target", Title: "Chapter 3", Content: "chapter text"},
		"A":      {ID: "A", Title: "Alice", Summary: "alice summary", Content: "alice content"},
		"B":      {ID: "B", Title: "Barrow", Content: "barrow content"},
	}
	task := &store.Task{
		DocID: "target",
		Type:  store.TaskSummary,
		RelatedDocs: []store.DocRef{
			{DocID: "A", Field: store.FieldSummary},
			{DocID: "B", Field: store.FieldContent},
		},
	}

	turns, err := Assemble(task, docs)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// intro pair + two related pairs + final turn
	if len(turns) != 7 {
		t.Fatalf("expected 7 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		wantRole := provider.RoleUser
		if i%2 == 1 {
			wantRole = provider.RoleAssistant
		}
		if turn.Role != wantRole {
			t.Errorf("turn %d role = %q, want %q (strict alternation)", i, turn.Role, wantRole)
		}
	}

	first := turns[2].Content
	second := turns[4].Content
	if !strings.Contains(first, "Alice") || !strings.Contains(first, "alice summary") {
		t.Errorf("first related turn = %q, want Alice's summary", first)
	}
	if strings.Contains(first, "alice content") {
		t.Error("first related turn must carry the summary field, not content")
	}
	if !strings.Contains(second, "Barrow") || !strings.Contains(second, "barrow content") {
		t.Errorf("second related turn = %q, want Barrow's content", second)
	}
	if !strings.Contains(first, "(Summary)") {
		t.Errorf("field label missing from header: %q", first)
	}
}

func TestAssembleMissingRelatedDocTolerated(t *testing.T) {
	docs := fakeDocs{"target": {ID: "target", Title: "T", Content: "text"}}
	task := &store.Task{
		DocID:       "target",
		Type:        store.TaskSummary,
		RelatedDocs: []store.DocRef{{DocID: "gone", Field: store.FieldContent}},
	}

	turns, err := Assemble(task, docs)
	if err != nil {
		t.Fatalf("missing related doc must not fail assembly: %v", err)
	}
	related := turns[2].Content
	if !strings.HasPrefix(related, "# gone (Content)") {
		t.Errorf("related turn = %q, want empty-bodied header", related)
	}
}

func TestFinalTurnTemplates(t *testing.T) {
	target := &store.Doc{
		ID:      "d1",
		Title:   "The Village",
		Type:    store.DocArticle,
		Content: "Once there was a village.",
	}
	docs := fakeDocs{"d1": target}

	cases := []struct {
		name string
		task *store.Task
		want []string
		not  []string
	}{
		{
			name: "content with existing text",
			task: &store.Task{DocID: "d1", Type: store.TaskContent, Prompt: "continue the story"},
			want: []string{"existing content", "Once there was a village.", "continue the story"},
		},
		{
			name: "outline",
			task: &store.Task{DocID: "d1", Type: store.TaskOutline, Prompt: "p"},
			want: []string{"Generate an outline for the document The Village", "Once there was a village."},
		},
		{
			name: "improvement default rubric",
			task: &store.Task{DocID: "d1", Type: store.TaskImprovement},
			want: []string{"Once there was a village.", "Score it out of 100"},
		},
		{
			name: "improvement custom prompt",
			task: &store.Task{DocID: "d1", Type: store.TaskImprovement, Prompt: "tighten the pacing"},
			want: []string{"tighten the pacing"},
			not:  []string{"Score it out of 100"},
		},
		{
			name: "notes",
			task: &store.Task{DocID: "d1", Type: store.TaskNotes, Prompt: "list open threads"},
			want: []string{"Once there was a village.", "list open threads"},
		},
		{
			name: "synopsis",
			task: &store.Task{DocID: "d1", Type: store.TaskSynopsis, Prompt: "p"},
			want: []string{"Once there was a village.", "Generate a synopsis of the document in markdown."},
		},
		{
			name: "summary",
			task: &store.Task{DocID: "d1", Type: store.TaskSummary},
			want: []string{"detailed summary", "Title: The Village", "Type: Article", "Once there was a village.", "no speculation"},
		},
	}

	for _, tc := range cases {
		turns, err := Assemble(tc.task, docs)
		if err != nil {
			t.Errorf("%s: Assemble: %v", tc.name, err)
			continue
		}
		final := turns[len(turns)-1].Content
		for _, want := range tc.want {
			if !strings.Contains(final, want) {
				t.Errorf("%s: final turn missing %q:\n%s", tc.name, want, final)
			}
		}
		for _, not := range tc.not {
			if strings.Contains(final, not) {
				t.Errorf("%s: final turn should not contain %q", tc.name, not)
			}
		}
	}
}

func TestContentWithoutExistingText(t *testing.T) {
	docs := fakeDocs{"d1": {ID: "d1", Title: "Fresh"}}
	task := &store.Task{DocID: "d1", Type: store.TaskContent, Prompt: "write an opening scene"}

	turns, err := Assemble(task, docs)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	final := turns[len(turns)-1].Content
	if final != "write an opening scene" {
		t.Errorf("final turn = %q, want the prompt verbatim", final)
	}
}

func TestSystemPersonaVariesByType(t *testing.T) {
	content := System(store.TaskContent)
	analysis := System(store.TaskSummary)
	if content == analysis {
		t.Error("content and summary system prompts should differ")
	}
	if !strings.Contains(content, "fiction writer") {
		t.Errorf("content persona = %q", content)
	}
	if System(store.TaskImprovement) != analysis {
		t.Error("non-content types share the analysis persona")
	}
}
