package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/eventqueue"
	"github.com/agent-protocol/a2a-server/pkg/executor"
	"github.com/agent-protocol/a2a-server/pkg/ptr"
)

// detachedContext strips cancellation/deadline from ctx while keeping
// its values, so background task execution outlives the HTTP request
// that started it (spec §5: the bounded wait on message/send ends the
// request, not the task).
func detachedContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// startRun ensures the task exists, registers a fresh event queue for it,
// and spawns the executor plus a projector goroutine that applies every
// published event to the task manager (and, through it, to the push-
// notification manager). The returned queue stays registered for
// tasks/resubscribe until the executor run finishes.
//
// When sseConnID is non-empty, startRun also registers a live SSE
// subscription with the push-notification manager (spec §4.6's SSE
// registry) before spawning the executor, so message/stream never races
// the executor's first published event; the caller must eventually call
// the returned unregister func. sseEvents/unregister are nil when
// sseConnID is empty.
func (h *Handler) startRun(runCtx context.Context, meta RequestMeta, params *a2a.MessageSendParams, sseConnID string) (taskID string, queue *eventqueue.Queue, sseEvents <-chan *a2a.Event, unregister func(), err *a2a.JSONRPCError) {
	reqTaskID := ptr.Deref(params.TaskID)
	reqContextID := ptr.Deref(params.ContextID)

	task, taskID, contextID, ensureErr := h.manager.EnsureTask(runCtx, reqTaskID, reqContextID)
	if ensureErr != nil {
		return "", nil, nil, nil, a2a.AsJSONRPCError(ensureErr)
	}

	if params.Message.MessageID == "" {
		params.Message.MessageID = newMessageID()
	}
	params.Message.Role = a2a.RoleUser

	if cfg := params.Configuration; cfg != nil && cfg.PushNotificationConfig != nil {
		if _, pcErr := h.push.SetPushConfig(runCtx, taskID, *cfg.PushNotificationConfig); pcErr != nil {
			h.logger.Warn("failed to register push config from message/send", "task_id", taskID, "error", pcErr)
		}
	}

	queue = eventqueue.New(h.opts.EventQueueCapacity)
	h.registerQueue(taskID, queue)

	if sseConnID != "" {
		sseEvents, unregister = h.push.SubscribeSSE(taskID, sseConnID)
	}

	reqCtx := &executor.RequestContext{
		TaskID:      taskID,
		ContextID:   contextID,
		Message:     &params.Message,
		CurrentTask: task,
		RemoteAddr:  meta.RemoteAddr,
		UserAgent:   meta.UserAgent,
		Headers:     meta.Headers,
		Principal:   meta.Principal,
		Metadata:    params.Metadata,
	}

	projector := queue.Subscribe(nil)
	go func() {
		for event := range projector.Events() {
			_ = h.manager.Apply(runCtx, event)
		}
	}()

	// Work runs detached from the HTTP request's context (spec §5: a
	// bounded-wait timeout on message/send ends the *request*, not the
	// task), via runCtx, which callers build with detachedContext: it
	// keeps the request's values but is never canceled or timed out.
	go func() {
		defer func() {
			queue.Close()
			h.unregisterQueue(taskID, queue)
		}()
		if execErr := h.executor.Execute(runCtx, reqCtx, queue); execErr != nil {
			failed := &a2a.Event{
				Type:      a2a.EventTypeStatusUpdate,
				TaskID:    taskID,
				ContextID: contextID,
				StatusUpdate: &a2a.TaskStatusUpdateEvent{
					Kind:      "status-update",
					TaskID:    taskID,
					ContextID: contextID,
					Final:     true,
					Status: a2a.TaskStatus{
						State:     a2a.TaskStateFailed,
						Error:     &a2a.TaskError{Kind: "executor_error", Message: execErr.Error()},
						UpdatedAt: time.Now().UTC(),
					},
				},
			}
			_ = queue.Publish(runCtx, failed)
		}
	}()

	return taskID, queue, sseEvents, unregister, nil
}

func (h *Handler) handleMessageSend(ctx context.Context, meta RequestMeta, raw json.RawMessage) (any, *a2a.JSONRPCError) {
	params, perr := decodeParams[a2a.MessageSendParams](raw, h.validate)
	if perr != nil {
		return nil, perr
	}

	runCtx := detachedContext(ctx)
	// A blocking send waits on a live subscription in the push manager's
	// SSE registry rather than on the raw queue: the registry only sees an
	// event after the task manager has applied it to the store, so the
	// task loaded below already reflects the terminal state.
	connID := ""
	if params.IsBlocking() {
		connID = newConnID()
	}
	taskID, _, events, unregister, err := h.startRun(runCtx, meta, params, connID)
	if err != nil {
		return nil, err
	}

	if !params.IsBlocking() {
		return h.loadTaskResult(ctx, taskID, params.HistoryLimit())
	}
	defer unregister()

	waitCtx, cancel := context.WithTimeout(ctx, h.opts.SendTimeout)
	defer cancel()

	var failed *a2a.Event
waitLoop:
	for {
		select {
		case event, ok := <-events:
			if !ok {
				break waitLoop
			}
			if event.Type == a2a.EventTypeStatusUpdate && event.StatusUpdate != nil && event.StatusUpdate.Status.State.Terminal() {
				if event.StatusUpdate.Status.State == a2a.TaskStateFailed {
					failed = event
				}
				break waitLoop
			}
		case <-waitCtx.Done():
			break waitLoop
		}
	}

	if failed != nil {
		errMsg := "task failed"
		if failed.StatusUpdate.Status.Error != nil {
			errMsg = failed.StatusUpdate.Status.Error.Message
		}
		rpcErr := &a2a.JSONRPCError{Code: a2a.CodeInternalError, Message: "task failed: " + errMsg}
		if task, loadErr := h.store.GetTask(ctx, taskID, params.HistoryLimit()); loadErr == nil {
			rpcErr.Data = task
		}
		return nil, rpcErr
	}

	return h.loadTaskResult(ctx, taskID, params.HistoryLimit())
}

func (h *Handler) handleMessageStream(ctx context.Context, meta RequestMeta, raw json.RawMessage) (<-chan *a2a.Event, *a2a.JSONRPCError) {
	params, perr := decodeParams[a2a.MessageSendParams](raw, h.validate)
	if perr != nil {
		return nil, perr
	}

	runCtx := detachedContext(ctx)
	_, _, sseEvents, unregister, err := h.startRun(runCtx, meta, params, newConnID())
	if err != nil {
		return nil, err
	}

	return sseClosingStream(ctx, sseEvents, unregister), nil
}

func (h *Handler) loadTaskResult(ctx context.Context, taskID string, historyLimit *int) (any, *a2a.JSONRPCError) {
	task, err := h.store.GetTask(ctx, taskID, historyLimit)
	if err != nil {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, taskID)
	}
	return task, nil
}

// sseClosingStream wraps events (a live subscription registered with
// pushnotify.Manager's SSE registry) so downstream consumers (the SSE
// writer) see the stream end exactly once a terminal status event has
// been forwarded, and unregisters promptly if ctx is canceled, matching
// spec §5's "client disconnection... the handler detects this on the
// next frame emission and unsubscribes." A nil unregister is skipped.
func sseClosingStream(ctx context.Context, events <-chan *a2a.Event, unregister func()) <-chan *a2a.Event {
	out := make(chan *a2a.Event)
	go func() {
		defer close(out)
		if unregister != nil {
			defer unregister()
		}
		for event := range events {
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
			if event.Type == a2a.EventTypeStatusUpdate && event.StatusUpdate != nil && event.StatusUpdate.Status.State.Terminal() {
				return
			}
		}
	}()
	return out
}
