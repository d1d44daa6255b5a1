package store

import (
	"os"
	"sync"
	"testing"

	"inkwell/errs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	f, err := os.CreateTemp("", "inkwell-store-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	path := f.Name()
	t.Cleanup(func() { os.Remove(path) })

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedProject(t *testing.T, s *Store) *Project {
	t.Helper()
	p := &Project{
		Name:   "Riverdale Chronicles",
		Author: "tester",
		Provider: ProviderConfig{
			Name:        "local",
			APIKey:      "test-key",
			BaseURL:     "http://localhost:1234/v1",
			Model:       "test-model",
			MaxTokens:   2000,
			Temperature: 1.2,
		},
	}
	if _, err := s.CreateProject(p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func TestProjectCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	got, err := s.GetProject(p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != p.Name {
		t.Errorf("Name = %q, want %q", got.Name, p.Name)
	}
	if got.Provider.Model != "test-model" {
		t.Errorf("Provider.Model = %q, want test-model", got.Provider.Model)
	}
	if got.Provider.Temperature != 1.2 {
		t.Errorf("Provider.Temperature = %v, want 1.2", got.Provider.Temperature)
	}
}

func TestProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProject("missing")
	if !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("expected not_found kind, got %v", err)
	}
}

func TestProviderConfigFor(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	cfg, err := s.ProviderConfigFor(p.ID)
	if err != nil {
		t.Fatalf("ProviderConfigFor: %v", err)
	}
	if cfg.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}

	// A project without a model has no usable provider.
	bare := &Project{Name: "bare"}
	if _, err := s.CreateProject(bare); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := s.ProviderConfigFor(bare.ID); !errs.IsKind(err, errs.KindConfig) {
		t.Errorf("expected configuration kind, got %v", err)
	}
}

func TestDocFieldAccess(t *testing.T) {
	d := &Doc{Content: "body", Summary: "short"}

	if got := d.Field(FieldContent); got != "body" {
		t.Errorf("Field(content) = %q", got)
	}
	if got := d.Field(FieldSummary); got != "short" {
		t.Errorf("Field(summary) = %q", got)
	}
	if got := d.Field(FieldType("bogus")); got != "" {
		t.Errorf("unknown field should be empty, got %q", got)
	}
	if !d.SetField(FieldOutline, "I. Start") {
		t.Error("SetField(outline) should succeed")
	}
	if d.Outline != "I. Start" {
		t.Errorf("Outline = %q", d.Outline)
	}
	if d.SetField(FieldType("bogus"), "x") {
		t.Error("SetField should reject unknown fields")
	}
}

func TestDocCRUDAndChildren(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	root := &Doc{ProjectID: p.ID, Title: "Book One", Type: DocArticle}
	if _, err := s.CreateDoc(root); err != nil {
		t.Fatalf("CreateDoc: %v", err)
	}
	ch1 := &Doc{ProjectID: p.ID, ParentID: root.ID, Title: "Chapter 1", Type: DocArticle, Priority: 1}
	ch2 := &Doc{ProjectID: p.ID, ParentID: root.ID, Title: "Chapter 2", Type: DocArticle, Priority: 2}
	for _, d := range []*Doc{ch1, ch2} {
		if _, err := s.CreateDoc(d); err != nil {
			t.Fatalf("CreateDoc: %v", err)
		}
	}

	children, err := s.ListDocs(p.ID, root.ID)
	if err != nil {
		t.Fatalf("ListDocs: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].Title != "Chapter 1" {
		t.Errorf("first child = %q, want Chapter 1", children[0].Title)
	}

	// Reorder swaps the priorities.
	if err := s.ReorderDocs(p.ID, []string{ch2.ID, ch1.ID}); err != nil {
		t.Fatalf("ReorderDocs: %v", err)
	}
	children, err = s.ListDocs(p.ID, root.ID)
	if err != nil {
		t.Fatalf("ListDocs: %v", err)
	}
	if children[0].Title != "Chapter 2" {
		t.Errorf("after reorder first child = %q, want Chapter 2", children[0].Title)
	}

	// Deleting the root reparents the chapters to the top level.
	if err := s.DeleteDoc(root.ID); err != nil {
		t.Fatalf("DeleteDoc: %v", err)
	}
	got, err := s.GetDoc(ch1.ID)
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if got.ParentID != "" {
		t.Errorf("child should be reparented to root, got parent %q", got.ParentID)
	}
}

func TestMoveDocRejectsCycles(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	a := &Doc{ProjectID: p.ID, Title: "A", Type: DocGroup}
	s.CreateDoc(a)
	b := &Doc{ProjectID: p.ID, ParentID: a.ID, Title: "B", Type: DocGroup}
	s.CreateDoc(b)
	c := &Doc{ProjectID: p.ID, ParentID: b.ID, Title: "C", Type: DocArticle}
	s.CreateDoc(c)

	// Moving A under its own grandchild is a cycle.
	err := s.MoveDoc(a.ID, c.ID)
	if !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("expected conflict on cycle, got %v", err)
	}

	// Legal sideways move.
	if err := s.MoveDoc(c.ID, a.ID); err != nil {
		t.Fatalf("MoveDoc: %v", err)
	}
	got, _ := s.GetDoc(c.ID)
	if got.ParentID != a.ID {
		t.Errorf("parent = %q, want %q", got.ParentID, a.ID)
	}
}

func TestAppendRevisionKeepsHistory(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	d := &Doc{ProjectID: p.ID, Title: "Village", Type: DocLocation, Content: "old text"}
	s.CreateDoc(d)

	if err := s.AppendRevision(d.ID, FieldContent, "new text"); err != nil {
		t.Fatalf("AppendRevision: %v", err)
	}
	got, err := s.GetDoc(d.ID)
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if got.Content != "new text" {
		t.Errorf("Content = %q, want new text", got.Content)
	}
	if len(got.History) != 1 || got.History[0].Content != "old text" {
		t.Errorf("History = %+v, want one entry with old text", got.History)
	}
	if got.History[0].Field != FieldContent {
		t.Errorf("History field = %q", got.History[0].Field)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	task := &Task{
		ProjectID: p.ID,
		DocID:     "doc-1",
		Type:      TaskSummary,
		RelatedDocs: []DocRef{
			{DocID: "doc-a", Field: FieldSummary},
			{DocID: "doc-b", Field: FieldContent},
		},
	}
	id, err := s.CreateTask(task)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := s.GetTask(p.ID, id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("new task status = %q, want pending", got.Status)
	}
	if len(got.RelatedDocs) != 2 || got.RelatedDocs[0].Field != FieldSummary {
		t.Errorf("RelatedDocs = %+v, order must survive round trip", got.RelatedDocs)
	}

	// Scoped lookup: wrong project is not found.
	if _, err := s.GetTask("other-project", id); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("expected not_found for wrong project, got %v", err)
	}

	// pending -> generating -> completed.
	if err := s.UpdateTaskStatus(id, StatusGenerating, "", ""); err != nil {
		t.Fatalf("to generating: %v", err)
	}
	if err := s.SetTaskResult(id, "partial"); err != nil {
		t.Fatalf("SetTaskResult: %v", err)
	}
	if err := s.UpdateTaskStatus(id, StatusCompleted, "final text", ""); err != nil {
		t.Fatalf("to completed: %v", err)
	}
	got, _ = s.GetTask(p.ID, id)
	if got.Status != StatusCompleted || got.Result != "final text" {
		t.Errorf("task = %q/%q, want completed/final text", got.Status, got.Result)
	}

	// Terminal states reject further transitions.
	err = s.UpdateTaskStatus(id, StatusGenerating, "", "")
	if !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("expected conflict from terminal state, got %v", err)
	}
}

func TestTaskIllegalTransitions(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	task := &Task{ProjectID: p.ID, DocID: "doc-1", Type: TaskContent, Prompt: "write"}
	id, _ := s.CreateTask(task)

	// pending cannot jump straight to completed.
	err := s.UpdateTaskStatus(id, StatusCompleted, "x", "")
	if !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	// Failed generation keeps the partial result.
	s.UpdateTaskStatus(id, StatusGenerating, "", "")
	s.SetTaskResult(id, "Once upon")
	if err := s.UpdateTaskStatus(id, StatusFailed, "Once upon", "provider exploded"); err != nil {
		t.Fatalf("to failed: %v", err)
	}
	got, _ := s.GetTask(p.ID, id)
	if got.Result != "Once upon" {
		t.Errorf("partial result lost: %q", got.Result)
	}
	if got.Error != "provider exploded" {
		t.Errorf("Error = %q", got.Error)
	}
}

func TestConcurrentTransitionHasOneWinner(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	task := &Task{ProjectID: p.ID, DocID: "doc-1", Type: TaskContent, Prompt: "write"}
	id, _ := s.CreateTask(task)

	// Race several callers for pending -> generating. The CAS write
	// must let exactly one through and report conflict to the rest.
	const callers = 8
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.UpdateTaskStatus(id, StatusGenerating, "", "")
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errs.IsKind(err, errs.KindConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want 1", wins)
	}
	if conflicts != callers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, callers-1)
	}

	got, _ := s.GetTask(p.ID, id)
	if got.Status != StatusGenerating {
		t.Errorf("Status = %s, want generating", got.Status)
	}
}

func TestUpdateTaskOnlyWhilePending(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	task := &Task{ProjectID: p.ID, DocID: "doc-1", Type: TaskNotes, Prompt: "first"}
	id, _ := s.CreateTask(task)

	task.Prompt = "second"
	if err := s.UpdateTask(task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	got, _ := s.GetTask(p.ID, id)
	if got.Prompt != "second" {
		t.Errorf("Prompt = %q", got.Prompt)
	}

	s.UpdateTaskStatus(id, StatusGenerating, "", "")
	task.Prompt = "third"
	if err := s.UpdateTask(task); !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("expected conflict editing a generating task, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusGenerating, true},
		{StatusGenerating, StatusCompleted, true},
		{StatusGenerating, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusFailed, false},
		{StatusCompleted, StatusGenerating, false},
		{StatusFailed, StatusGenerating, false},
		{StatusCompleted, StatusFailed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	d := &Doc{ProjectID: p.ID, Title: "doc", Type: DocArticle}
	s.CreateDoc(d)
	task := &Task{ProjectID: p.ID, DocID: d.ID, Type: TaskSummary}
	taskID, _ := s.CreateTask(task)

	if err := s.DeleteProject(p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := s.GetDoc(d.ID); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("doc should be gone, got %v", err)
	}
	if _, err := s.GetTask(p.ID, taskID); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("task should be gone, got %v", err)
	}
}
