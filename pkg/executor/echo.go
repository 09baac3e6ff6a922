package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

// EchoExecutor is a minimal reference AgentExecutor used by tests and
// demos: it immediately reports working, then completed with the
// concatenated text of the triggering message's text parts echoed back
// as the task result (spec §8 scenario 1).
type EchoExecutor struct {
	// Delay, if non-zero, is slept between the working and completed
	// events, useful for exercising message/send's blocking timeout and
	// tasks/cancel in tests.
	Delay time.Duration
}

func (e *EchoExecutor) Execute(ctx context.Context, reqCtx *RequestContext, queue Publisher) error {
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

	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	text := extractText(reqCtx.Message)
	completed := &a2a.Event{
		Type:      a2a.EventTypeStatusUpdate,
		TaskID:    reqCtx.TaskID,
		ContextID: reqCtx.ContextID,
		StatusUpdate: &a2a.TaskStatusUpdateEvent{
			Kind:      "status-update",
			TaskID:    reqCtx.TaskID,
			ContextID: reqCtx.ContextID,
			Final:     true,
			Status: a2a.TaskStatus{
				State:     a2a.TaskStateCompleted,
				Result:    map[string]any{"echo": text},
				UpdatedAt: time.Now().UTC(),
			},
		},
	}
	return queue.Publish(ctx, completed)
}

func (e *EchoExecutor) Cancel(ctx context.Context, reqCtx *RequestContext, queue Publisher) error {
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

func extractText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	text := ""
	for _, part := range msg.Parts {
		if part.Kind == a2a.PartKindText {
			text += part.Text
		}
	}
	return text
}

// ErrorExecutor is a reference AgentExecutor that always fails, used to
// exercise the request handler's failure translation path.
type ErrorExecutor struct{ Message string }

func (e *ErrorExecutor) Execute(ctx context.Context, reqCtx *RequestContext, queue Publisher) error {
	msg := e.Message
	if msg == "" {
		msg = "executor failed"
	}
	return fmt.Errorf("%s", msg)
}

func (e *ErrorExecutor) Cancel(ctx context.Context, reqCtx *RequestContext, queue Publisher) error {
	return nil
}
