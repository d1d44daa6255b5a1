// Package executor drives a task through its lifecycle: it assembles the
// prompt, streams the completion from the project's provider, and commits
// the resulting state transitions.
package executor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"inkwell/errs"
	"inkwell/events"
	"inkwell/prompt"
	"inkwell/provider"
	"inkwell/store"
)

// Executor runs generation tasks. A zero PartialWriteEvery persists the
// partial result after every delta; larger values coalesce writes.
type Executor struct {
	Store             *store.Store
	Bus               *events.Bus
	Logger            *slog.Logger
	HTTPClient        *http.Client
	PartialWriteEvery int
}

// New creates an Executor with the default HTTP client.
func New(st *store.Store, bus *events.Bus, logger *slog.Logger) *Executor {
	return &Executor{Store: st, Bus: bus, Logger: logger}
}

// Execute runs the task identified by projectID/taskID, writing each delta
// to sink as it arrives. All preconditions are checked before any state
// changes; once the task is marked generating, every outcome — including a
// provider error or the client going away — ends in a terminal status with
// whatever partial result was accumulated.
func (e *Executor) Execute(ctx context.Context, projectID, taskID string, sink io.Writer) error {
	task, err := e.Store.GetTask(projectID, taskID)
	if err != nil {
		return err
	}
	if task.Status != store.StatusPending {
		return errs.Newf(errs.KindConflict, "task is already %s", task.Status)
	}
	pcfg, err := e.Store.ProviderConfigFor(projectID)
	if err != nil {
		return err
	}
	cfg := provider.Config{
		Name:        pcfg.Name,
		APIKey:      pcfg.APIKey,
		BaseURL:     pcfg.BaseURL,
		Model:       pcfg.Model,
		MaxTokens:   pcfg.MaxTokens,
		Temperature: pcfg.Temperature,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	turns, err := prompt.Assemble(task, e.Store)
	if err != nil {
		return err
	}

	// Preconditions hold. Commit the generating transition before the
	// provider is contacted so a crash mid-stream is observable.
	if err := e.Store.UpdateTaskStatus(task.ID, store.StatusGenerating, "", ""); err != nil {
		return err
	}
	e.publishStatus(task, store.StatusGenerating)

	var opts []provider.Option
	if e.HTTPClient != nil {
		opts = append(opts, provider.WithHTTPClient(e.HTTPClient))
	}
	client := provider.NewClient(cfg, opts...)

	start := time.Now()
	body, err := client.StreamCompletion(ctx, prompt.System(task.Type), turns)
	if err != nil {
		return e.fail(task, "", err)
	}
	defer body.Close()

	flusher, _ := sink.(http.Flusher)
	every := e.PartialWriteEvery
	if every < 1 {
		every = 1
	}

	var (
		partial  strings.Builder
		sinkErr  error
		deltas   int
		unsynced int
	)
	text, streamErr := provider.DecodeStream(body, e.Logger, func(delta string) {
		partial.WriteString(delta)
		deltas++
		unsynced++

		if sinkErr == nil {
			if _, err := io.WriteString(sink, delta); err != nil {
				sinkErr = err
			} else if flusher != nil {
				flusher.Flush()
			}
		}

		if unsynced >= every {
			unsynced = 0
			if err := e.Store.SetTaskResult(task.ID, partial.String()); err != nil {
				e.Logger.Warn("partial result write failed",
					slog.String("task_id", task.ID), slog.Any("err", err))
			}
		}
	})

	switch {
	case streamErr != nil:
		return e.fail(task, text, streamErr)
	case sinkErr != nil || ctx.Err() != nil:
		return e.fail(task, text, errs.New(errs.KindProvider, "client disconnected"))
	}

	if err := e.Store.UpdateTaskStatus(task.ID, store.StatusCompleted, text, ""); err != nil {
		return err
	}
	e.publishStatus(task, store.StatusCompleted)
	e.Logger.Info("task completed",
		slog.String("task_id", task.ID),
		slog.String("type", string(task.Type)),
		slog.Int("deltas", deltas),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// fail records the terminal failure, keeping whatever partial result the
// stream produced before the error.
func (e *Executor) fail(task *store.Task, partial string, cause error) error {
	if err := e.Store.UpdateTaskStatus(task.ID, store.StatusFailed, partial, cause.Error()); err != nil {
		e.Logger.Error("record task failure",
			slog.String("task_id", task.ID), slog.Any("err", err))
	}
	e.publishStatus(task, store.StatusFailed)
	e.Logger.Warn("task failed",
		slog.String("task_id", task.ID), slog.Any("err", cause))
	return cause
}

func (e *Executor) publishStatus(task *store.Task, status store.Status) {
	if e.Bus == nil {
		return
	}
	e.Bus.Publish(events.Event{
		Type:      events.TypeTaskStatus,
		ProjectID: task.ProjectID,
		TaskID:    task.ID,
		Status:    status,
	})
}
