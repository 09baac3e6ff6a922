package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/agent-protocol/a2a-server/internal/jsonrpc2"
	"github.com/agent-protocol/a2a-server/internal/pushnotify"
	"github.com/agent-protocol/a2a-server/internal/taskmanager"
	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/executor"
	"github.com/agent-protocol/a2a-server/pkg/store"
)

func newTestHandler(t *testing.T, agentExecutor executor.AgentExecutor, tweak func(*Options)) *Handler {
	t.Helper()
	taskStore := store.NewInMemoryTaskStore()
	push := pushnotify.New(taskStore, pushnotify.DefaultWebhookConfig(), nil)
	t.Cleanup(push.Close)
	manager := taskmanager.New(taskStore, push, 0, nil)

	opts := DefaultOptions()
	opts.SendTimeout = 2 * time.Second
	opts.CancelGrace = 30 * time.Millisecond
	if tweak != nil {
		tweak(&opts)
	}

	card := a2a.AgentCard{Name: "test-agent", Description: "test", Version: "0.0.0", URL: "http://test"}
	return New(taskStore, manager, push, agentExecutor, card, nil, opts, nil)
}

func messageSendRequest(id any, text string, blocking *bool) jsonrpc2.Request {
	params := a2a.MessageSendParams{
		Message: a2a.Message{Parts: []a2a.Part{a2a.TextPart(text)}},
	}
	if blocking != nil {
		params.Configuration = &a2a.MessageSendConfiguration{Blocking: blocking}
	}
	raw, _ := json.Marshal(params)
	return jsonrpc2.Request{ID: id, Method: "message/send", Params: raw}
}

func tasksCancelRequest(id any, taskID string) jsonrpc2.Request {
	raw, _ := json.Marshal(a2a.TaskIDParams{ID: taskID})
	return jsonrpc2.Request{ID: id, Method: "tasks/cancel", Params: raw}
}

func waitForTaskState(t *testing.T, h *Handler, taskID string, want a2a.TaskState, timeout time.Duration) *a2a.Task {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var task *a2a.Task
	for time.Now().Before(deadline) {
		got, err := h.store.GetTask(context.Background(), taskID, nil)
		if err == nil {
			task = got
			if task.Status.State == want {
				return task
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for task %s to reach state %s, last seen %+v", taskID, want, task)
	return nil
}

func TestMessageSendBlockingTimeoutReturnsCurrentNonTerminalState(t *testing.T) {
	slow := &executor.EchoExecutor{Delay: 300 * time.Millisecond}
	h := newTestHandler(t, slow, func(o *Options) { o.SendTimeout = 40 * time.Millisecond })

	req := messageSendRequest("1", "hi", nil)
	result, stream, rpcErr := h.Handle(context.Background(), RequestMeta{}, req, false)
	if rpcErr != nil {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
	if stream != nil {
		t.Fatalf("message/send must not return a stream")
	}
	task, ok := result.(*a2a.Task)
	if !ok {
		t.Fatalf("expected *a2a.Task result, got %T", result)
	}
	if task.Status.State.Terminal() {
		t.Fatalf("expected a non-terminal task state after the bounded wait timed out, got %s", task.Status.State)
	}
}

func TestMessageSendBlockingReturnsCompletedOnSuccess(t *testing.T) {
	fast := &executor.EchoExecutor{}
	h := newTestHandler(t, fast, nil)

	req := messageSendRequest("1", "hello", nil)
	result, _, rpcErr := h.Handle(context.Background(), RequestMeta{}, req, false)
	if rpcErr != nil {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
	task := result.(*a2a.Task)
	if task.Status.State != a2a.TaskStateCompleted {
		t.Fatalf("expected completed, got %s", task.Status.State)
	}
}

func TestMessageSendNonBlockingReturnsImmediately(t *testing.T) {
	slow := &executor.EchoExecutor{Delay: 200 * time.Millisecond}
	h := newTestHandler(t, slow, nil)

	no := false
	req := messageSendRequest("1", "hi", &no)
	start := time.Now()
	result, _, rpcErr := h.Handle(context.Background(), RequestMeta{}, req, false)
	elapsed := time.Since(start)
	if rpcErr != nil {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
	if elapsed > 150*time.Millisecond {
		t.Fatalf("expected non-blocking message/send to return promptly, took %s", elapsed)
	}
	task := result.(*a2a.Task)
	if task.Status.State.Terminal() {
		t.Fatalf("expected non-terminal state immediately after a non-blocking send, got %s", task.Status.State)
	}
}

// stallExecutor keeps Execute running until stop is closed and makes
// Cancel take cancelDelay to publish its canceled event, so tests can
// observe tasks/cancel's grace-period timeout independent of real
// executor completion.
type stallExecutor struct {
	cancelDelay time.Duration
	stop        chan struct{}
}

func (s *stallExecutor) Execute(ctx context.Context, reqCtx *executor.RequestContext, queue executor.Publisher) error {
	working := &a2a.Event{
		Type:      a2a.EventTypeStatusUpdate,
		TaskID:    reqCtx.TaskID,
		ContextID: reqCtx.ContextID,
		StatusUpdate: &a2a.TaskStatusUpdateEvent{
			Kind:      "status-update",
			TaskID:    reqCtx.TaskID,
			ContextID: reqCtx.ContextID,
			Status:    a2a.TaskStatus{State: a2a.TaskStateWorking, UpdatedAt: time.Now().UTC()},
		},
	}
	if err := queue.Publish(ctx, working); err != nil {
		return err
	}
	<-s.stop
	return nil
}

func (s *stallExecutor) Cancel(ctx context.Context, reqCtx *executor.RequestContext, queue executor.Publisher) error {
	time.Sleep(s.cancelDelay)
	canceled := &a2a.Event{
		Type:      a2a.EventTypeStatusUpdate,
		TaskID:    reqCtx.TaskID,
		ContextID: reqCtx.ContextID,
		StatusUpdate: &a2a.TaskStatusUpdateEvent{
			Kind:      "status-update",
			TaskID:    reqCtx.TaskID,
			ContextID: reqCtx.ContextID,
			Final:     true,
			Status:    a2a.TaskStatus{State: a2a.TaskStateCanceled, UpdatedAt: time.Now().UTC()},
		},
	}
	return queue.Publish(ctx, canceled)
}

func TestTasksCancelReturnsAfterGracePeriodWithoutWaitingForExecutor(t *testing.T) {
	exec := &stallExecutor{cancelDelay: 300 * time.Millisecond, stop: make(chan struct{})}
	defer close(exec.stop)
	h := newTestHandler(t, exec, func(o *Options) { o.CancelGrace = 30 * time.Millisecond })

	no := false
	sendReq := messageSendRequest("1", "hi", &no)
	result, _, rpcErr := h.Handle(context.Background(), RequestMeta{}, sendReq, false)
	if rpcErr != nil {
		t.Fatalf("message/send: %+v", rpcErr)
	}
	taskID := result.(*a2a.Task).ID

	waitForTaskState(t, h, taskID, a2a.TaskStateWorking, time.Second)

	cancelReq := tasksCancelRequest("2", taskID)
	start := time.Now()
	cancelResult, _, rpcErr := h.Handle(context.Background(), RequestMeta{}, cancelReq, false)
	elapsed := time.Since(start)
	if rpcErr != nil {
		t.Fatalf("tasks/cancel: %+v", rpcErr)
	}
	if elapsed > 200*time.Millisecond {
		t.Fatalf("expected tasks/cancel to return around the grace period (30ms), took %s", elapsed)
	}

	task := cancelResult.(*a2a.Task)
	if task.Status.State == a2a.TaskStateCanceled {
		t.Fatalf("expected tasks/cancel to return before the executor's delayed cancellation landed")
	}
}

func TestTasksCancelRejectsAlreadyTerminalTask(t *testing.T) {
	fast := &executor.EchoExecutor{}
	h := newTestHandler(t, fast, nil)

	sendReq := messageSendRequest("1", "hi", nil)
	result, _, rpcErr := h.Handle(context.Background(), RequestMeta{}, sendReq, false)
	if rpcErr != nil {
		t.Fatalf("message/send: %+v", rpcErr)
	}
	taskID := result.(*a2a.Task).ID

	cancelReq := tasksCancelRequest("2", taskID)
	_, _, rpcErr = h.Handle(context.Background(), RequestMeta{}, cancelReq, false)
	if rpcErr == nil || rpcErr.Code != a2a.CodeTaskNotCancelable {
		t.Fatalf("expected CodeTaskNotCancelable, got %+v", rpcErr)
	}
}

func TestHandleRejectsStreamingMethodWhenStreamDisallowed(t *testing.T) {
	h := newTestHandler(t, &executor.EchoExecutor{}, nil)

	req := messageSendRequest("1", "hi", nil)
	req.Method = "message/stream"
	_, stream, rpcErr := h.Handle(context.Background(), RequestMeta{}, req, false)
	if stream != nil {
		t.Fatalf("expected no stream when allowStream is false")
	}
	if rpcErr == nil || rpcErr.Code != a2a.CodeInvalidRequest {
		t.Fatalf("expected CodeInvalidRequest, got %+v", rpcErr)
	}
}

func TestHandleRejectsStreamingMethodWhenStreamingDisabled(t *testing.T) {
	h := newTestHandler(t, &executor.EchoExecutor{}, func(o *Options) { o.StreamingEnabled = false })

	req := messageSendRequest("1", "hi", nil)
	req.Method = "message/stream"
	_, stream, rpcErr := h.Handle(context.Background(), RequestMeta{}, req, true)
	if stream != nil {
		t.Fatalf("expected no stream when streaming is disabled")
	}
	if rpcErr == nil || rpcErr.Code != a2a.CodeCapabilityUnsupported {
		t.Fatalf("expected CodeCapabilityUnsupported, got %+v", rpcErr)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	h := newTestHandler(t, &executor.EchoExecutor{}, nil)
	_, _, rpcErr := h.Handle(context.Background(), RequestMeta{}, jsonrpc2.Request{ID: "1", Method: "bogus/method"}, false)
	if rpcErr == nil || rpcErr.Code != a2a.CodeMethodNotFound {
		t.Fatalf("expected CodeMethodNotFound, got %+v", rpcErr)
	}
}
