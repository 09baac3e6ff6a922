// Package taskmanager implements the authoritative in-memory projection
// of task state (spec §4.5, C6): applying event-stream mutations,
// enforcing the task lifecycle transition graph, and forwarding every
// status and artifact change to the push-notification manager.
package taskmanager

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/eventqueue"
	"github.com/agent-protocol/a2a-server/pkg/store"
)

// Notifier receives every event passed to Manager.Apply, of any type and
// including events whose transition was rejected, for fan-out to
// webhooks and SSE clients (C7). Implemented by
// internal/pushnotify.Manager.
type Notifier interface {
	Notify(ctx context.Context, event *a2a.Event)
}

// Manager is the task manager (C6).
type Manager struct {
	store       store.TaskStore
	notifier    Notifier
	maxHistory  int
	logger      *slog.Logger
	rejectCount atomic.Uint64
}

// New creates a Manager. maxHistory <=0 disables truncation.
func New(taskStore store.TaskStore, notifier Notifier, maxHistory int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: taskStore, notifier: notifier, maxHistory: maxHistory, logger: logger}
}

// RejectedTransitions returns the number of events dropped for
// attempting an illegal state transition, since process start.
func (m *Manager) RejectedTransitions() uint64 {
	return m.rejectCount.Load()
}

// EnsureTask returns the task for (taskID, contextID), creating it (and
// allocating missing ids) if it doesn't exist yet. Per spec §4.5,
// identifiers are allocated deterministically when a request arrives
// without a task id.
func (m *Manager) EnsureTask(ctx context.Context, taskID, contextID string) (task *a2a.Task, taskIDOut, contextIDOut string, err error) {
	if taskID == "" {
		taskID = uuid.NewString()
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}

	existing, err := m.store.GetTask(ctx, taskID, nil)
	if err == nil {
		return existing, taskID, existing.ContextID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, "", "", a2a.NewError(a2a.CodeInternalError, nil)
	}

	newTask := a2a.NewTask(taskID, contextID)
	if err := m.store.SaveTask(ctx, newTask); err != nil {
		return nil, "", "", a2a.NewError(a2a.CodeInternalError, nil)
	}
	return newTask, taskID, contextID, nil
}

// Apply projects a single event onto the store, enforcing the state
// machine, and forwards it to the notifier. Illegal transitions are
// dropped and logged; Apply still returns nil for them (the producer
// should not be blocked by a single bad event — spec §4.5).
func (m *Manager) Apply(ctx context.Context, event *a2a.Event) error {
	switch event.Type {
	case a2a.EventTypeTask:
		if err := m.applyTask(ctx, event); err != nil {
			return err
		}
	case a2a.EventTypeStatusUpdate:
		if err := m.applyStatusUpdate(ctx, event); err != nil {
			return err
		}
	case a2a.EventTypeArtifactUpdate:
		if err := m.applyArtifactUpdate(ctx, event); err != nil {
			return err
		}
	case a2a.EventTypeMessage:
		if err := m.applyMessage(ctx, event); err != nil {
			return err
		}
	}

	if m.notifier != nil {
		m.notifier.Notify(ctx, event)
	}
	return nil
}

func (m *Manager) applyTask(ctx context.Context, event *a2a.Event) error {
	if event.Task == nil {
		return nil
	}
	return m.store.SaveTask(ctx, event.Task)
}

func (m *Manager) applyStatusUpdate(ctx context.Context, event *a2a.Event) error {
	if event.StatusUpdate == nil {
		return nil
	}
	update := event.StatusUpdate

	current, err := m.store.GetTask(ctx, event.TaskID, nil)
	if err != nil {
		m.logger.Warn("status update for unknown task", "task_id", event.TaskID)
		return nil
	}

	if !legalTransition(current.Status.State, update.Status.State) {
		m.rejectCount.Add(1)
		m.logger.Warn("rejected illegal task transition",
			"task_id", event.TaskID, "from", current.Status.State, "to", update.Status.State)
		return nil
	}

	if _, err := m.store.UpdateTaskStatus(ctx, event.TaskID, update.Status); err != nil {
		if errors.Is(err, store.ErrTerminalTransition) {
			m.rejectCount.Add(1)
			return nil
		}
		return a2a.NewError(a2a.CodeInternalError, nil)
	}

	// Repeated `working` pings with no attached message only refresh
	// updated_at; a status update that carries a message is a
	// conversational turn and is appended to history (SPEC_FULL.md §3,
	// resolving spec.md's third Open Question).
	if update.Status.Message != nil {
		if err := m.store.AppendMessage(ctx, event.TaskID, *update.Status.Message, m.maxHistory); err != nil {
			m.logger.Warn("failed to append status message to history", "task_id", event.TaskID, "error", err)
		}
	}
	return nil
}

func (m *Manager) applyArtifactUpdate(ctx context.Context, event *a2a.Event) error {
	if event.ArtifactUpdate == nil {
		return nil
	}
	mode := a2a.ArtifactModeReplace
	if event.ArtifactUpdate.Append {
		mode = a2a.ArtifactModeAppendParts
	}
	if _, err := m.store.AppendArtifact(ctx, event.TaskID, event.ArtifactUpdate.Artifact, mode); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("artifact update for unknown task", "task_id", event.TaskID)
			return nil
		}
		return a2a.NewError(a2a.CodeInternalError, nil)
	}
	return nil
}

func (m *Manager) applyMessage(ctx context.Context, event *a2a.Event) error {
	if event.Message == nil {
		return nil
	}
	if err := m.store.AppendMessage(ctx, event.TaskID, *event.Message, m.maxHistory); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("message event for unknown task", "task_id", event.TaskID)
			return nil
		}
		return a2a.NewError(a2a.CodeInternalError, nil)
	}
	return nil
}

// Pump applies every event read from sub until its channel closes,
// returning the last terminal status event observed, if any. The
// request handler does not use it: its projector goroutine calls Apply
// per event directly.
func (m *Manager) Pump(ctx context.Context, sub *eventqueue.Subscriber) *a2a.Event {
	var terminal *a2a.Event
	for event := range sub.Events() {
		_ = m.Apply(ctx, event)
		if event.Type == a2a.EventTypeStatusUpdate && event.StatusUpdate != nil && event.StatusUpdate.Status.State.Terminal() {
			terminal = event
		}
	}
	return terminal
}
