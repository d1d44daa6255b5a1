package events

import (
	"bufio"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inkwell/store"
)

func makeEvent(projectID, taskID string, status store.Status) Event {
	return Event{
		Type:      TypeTaskStatus,
		ProjectID: projectID,
		TaskID:    taskID,
		Status:    status,
		Timestamp: time.Now(),
	}
}

func TestBus_Subscribe_Unsubscribe(t *testing.T) {
	bus := NewBus()

	var received int
	unsub := bus.Subscribe("proj-a", func(_ Event) {
		received++
	})

	bus.Publish(makeEvent("proj-a", "task-1", store.StatusGenerating))
	if received != 1 {
		t.Errorf("received = %d, want 1", received)
	}

	// Unsubscribe and verify no more events
	unsub()
	bus.Publish(makeEvent("proj-a", "task-1", store.StatusCompleted))
	if received != 1 {
		t.Errorf("received after unsub = %d, want 1", received)
	}
}

func TestBus_ProjectScoping(t *testing.T) {
	bus := NewBus()

	var scoped, all int
	bus.Subscribe("proj-a", func(_ Event) { scoped++ })
	bus.Subscribe("", func(_ Event) { all++ })

	bus.Publish(makeEvent("proj-a", "task-1", store.StatusGenerating))
	bus.Publish(makeEvent("proj-b", "task-2", store.StatusGenerating))

	if scoped != 1 {
		t.Errorf("scoped handler received = %d, want 1", scoped)
	}
	if all != 2 {
		t.Errorf("all-project handler received = %d, want 2", all)
	}
}

func TestBus_History(t *testing.T) {
	bus := NewBus()

	bus.Publish(makeEvent("proj-a", "task-1", store.StatusGenerating))
	bus.Publish(makeEvent("proj-b", "task-2", store.StatusGenerating))
	bus.Publish(makeEvent("proj-a", "task-1", store.StatusCompleted))

	hist := bus.History("proj-a", 0)
	if len(hist) != 2 {
		t.Fatalf("History(proj-a) = %d events, want 2", len(hist))
	}
	// Chronological order
	if hist[0].Status != store.StatusGenerating || hist[1].Status != store.StatusCompleted {
		t.Errorf("history out of order: %v then %v", hist[0].Status, hist[1].Status)
	}

	if got := bus.History("", 2); len(got) != 2 {
		t.Errorf("History(all, limit 2) = %d events, want 2", len(got))
	}
}

func TestBus_HistoryCap(t *testing.T) {
	bus := NewBus()
	bus.maxHist = 5

	for range 10 {
		bus.Publish(makeEvent("proj-a", "task-1", store.StatusGenerating))
	}
	if got := len(bus.History("", 0)); got != 5 {
		t.Errorf("history length = %d, want 5", got)
	}
}

func TestHub_ServeSSE(t *testing.T) {
	bus := NewBus()
	hub := NewHub(bus, slog.Default())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeSSE))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	readData := func() string {
		t.Helper()
		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, "data: ") {
				t.Fatalf("non-SSE line: %q", line)
			}
			return strings.TrimPrefix(line, "data: ")
		}
		t.Fatalf("stream ended early: %v", sc.Err())
		return ""
	}

	// The connected event is written after the client is registered,
	// so seeing it guarantees a broadcast will reach us.
	if got := readData(); got != `{"type":"connected"}` {
		t.Fatalf("first event = %q, want connected", got)
	}

	bus.Publish(makeEvent("proj-a", "task-1", store.StatusCompleted))

	if got := readData(); !strings.Contains(got, TypeTaskStatus) {
		t.Errorf("broadcast event = %q, want type %q", got, TypeTaskStatus)
	}
}
