package taskmanager

import (
	"context"
	"testing"
	"time"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/store"
)

type recordingNotifier struct{ events []*a2a.Event }

func (r *recordingNotifier) Notify(ctx context.Context, event *a2a.Event) {
	r.events = append(r.events, event)
}

func newTestManager() (*Manager, store.TaskStore, *recordingNotifier) {
	s := store.NewInMemoryTaskStore()
	n := &recordingNotifier{}
	return New(s, n, 0, nil), s, n
}

func TestEnsureTaskAllocatesIDsWhenAbsent(t *testing.T) {
	m, _, _ := newTestManager()
	task, taskID, contextID, err := m.EnsureTask(context.Background(), "", "")
	if err != nil {
		t.Fatalf("EnsureTask: %v", err)
	}
	if taskID == "" || contextID == "" {
		t.Fatalf("expected allocated ids, got %q %q", taskID, contextID)
	}
	if task.ID != taskID || task.ContextID != contextID {
		t.Fatalf("task ids mismatch: %+v", task)
	}
	if task.Status.State != a2a.TaskStateSubmitted {
		t.Fatalf("expected submitted, got %s", task.Status.State)
	}
}

func TestEnsureTaskReturnsExisting(t *testing.T) {
	m, s, _ := newTestManager()
	existing := a2a.NewTask("t1", "c1")
	if err := s.SaveTask(context.Background(), existing); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	task, taskID, _, err := m.EnsureTask(context.Background(), "t1", "c1")
	if err != nil {
		t.Fatalf("EnsureTask: %v", err)
	}
	if taskID != "t1" || task.ID != "t1" {
		t.Fatalf("expected existing task returned, got %+v", task)
	}
}

func TestApplyStatusUpdateRejectsIllegalTransition(t *testing.T) {
	m, s, n := newTestManager()
	task := a2a.NewTask("t1", "c1")
	task.Status.State = a2a.TaskStateCompleted
	if err := s.SaveTask(context.Background(), task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	event := &a2a.Event{
		Type:   a2a.EventTypeStatusUpdate,
		TaskID: "t1",
		StatusUpdate: &a2a.TaskStatusUpdateEvent{
			TaskID: "t1",
			Status: a2a.TaskStatus{State: a2a.TaskStateWorking, UpdatedAt: time.Now().UTC()},
		},
	}
	if err := m.Apply(context.Background(), event); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := m.RejectedTransitions(); got != 1 {
		t.Fatalf("expected 1 rejected transition, got %d", got)
	}
	stored, err := s.GetTask(context.Background(), "t1", nil)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if stored.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("expected task to remain completed, got %s", stored.Status.State)
	}
	// The notifier still sees every event, legal or not - it is the
	// manager's job to discard the mutation, not to hide the event.
	if len(n.events) != 1 {
		t.Fatalf("expected notifier to observe the event, got %d", len(n.events))
	}
}

func TestApplyStatusUpdateWithMessageAppendsHistory(t *testing.T) {
	m, s, _ := newTestManager()
	task := a2a.NewTask("t1", "c1")
	if err := s.SaveTask(context.Background(), task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	msg := a2a.Message{MessageID: "m1", Role: a2a.RoleAgent, Parts: []a2a.Part{a2a.TextPart("hi")}}
	event := &a2a.Event{
		Type:   a2a.EventTypeStatusUpdate,
		TaskID: "t1",
		StatusUpdate: &a2a.TaskStatusUpdateEvent{
			TaskID: "t1",
			Status: a2a.TaskStatus{State: a2a.TaskStateWorking, Message: &msg, UpdatedAt: time.Now().UTC()},
		},
	}
	if err := m.Apply(context.Background(), event); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	stored, err := s.GetTask(context.Background(), "t1", nil)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if len(stored.History) != 1 || stored.History[0].MessageID != "m1" {
		t.Fatalf("expected message appended to history, got %+v", stored.History)
	}
}

func TestApplyArtifactUpdateForwardsToStore(t *testing.T) {
	m, s, _ := newTestManager()
	task := a2a.NewTask("t1", "c1")
	if err := s.SaveTask(context.Background(), task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	event := &a2a.Event{
		Type:   a2a.EventTypeArtifactUpdate,
		TaskID: "t1",
		ArtifactUpdate: &a2a.TaskArtifactUpdateEvent{
			TaskID:   "t1",
			Artifact: a2a.Artifact{ArtifactID: "a1", Parts: []a2a.Part{a2a.TextPart("out")}},
		},
	}
	if err := m.Apply(context.Background(), event); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	stored, err := s.GetTask(context.Background(), "t1", nil)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if len(stored.Artifacts) != 1 || stored.Artifacts[0].ArtifactID != "a1" {
		t.Fatalf("expected artifact stored, got %+v", stored.Artifacts)
	}
}
