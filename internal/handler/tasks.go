package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/eventqueue"
	"github.com/agent-protocol/a2a-server/pkg/executor"
	"github.com/agent-protocol/a2a-server/pkg/store"
)

func (h *Handler) handleTasksGet(ctx context.Context, raw json.RawMessage) (any, *a2a.JSONRPCError) {
	params, perr := decodeParams[a2a.TaskQueryParams](raw, h.validate)
	if perr != nil {
		return nil, perr
	}
	task, err := h.store.GetTask(ctx, params.ID, params.HistoryLength)
	if err != nil {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, params.ID)
	}
	return task, nil
}

func (h *Handler) handleTasksCancel(ctx context.Context, meta RequestMeta, raw json.RawMessage) (any, *a2a.JSONRPCError) {
	params, perr := decodeParams[a2a.TaskIDParams](raw, h.validate)
	if perr != nil {
		return nil, perr
	}

	task, err := h.store.GetTask(ctx, params.ID, nil)
	if err != nil {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, params.ID)
	}
	if !task.Status.State.Cancelable() {
		return nil, a2a.NewError(a2a.CodeTaskNotCancelable, params.ID)
	}

	if queue, ok := h.lookupQueue(params.ID); ok {
		h.requestCancel(ctx, meta, task, queue)
	}

	return h.loadTaskResult(ctx, params.ID, nil)
}

func (h *Handler) requestCancel(ctx context.Context, meta RequestMeta, task *a2a.Task, queue *eventqueue.Queue) {
	reqCtx := &executor.RequestContext{
		TaskID:      task.ID,
		ContextID:   task.ContextID,
		CurrentTask: task,
		RemoteAddr:  meta.RemoteAddr,
		UserAgent:   meta.UserAgent,
		Headers:     meta.Headers,
		Principal:   meta.Principal,
	}

	sub := queue.Subscribe(eventqueue.MatchTask(task.ID))
	defer sub.Unsubscribe()

	go func() {
		if err := h.executor.Cancel(detachedContext(ctx), reqCtx, queue); err != nil {
			h.logger.Warn("executor cancel returned an error", "task_id", task.ID, "error", err)
		}
	}()

	grace := time.NewTimer(h.opts.CancelGrace)
	defer grace.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = h.manager.Apply(ctx, event)
			if event.Type == a2a.EventTypeStatusUpdate && event.StatusUpdate != nil && event.StatusUpdate.Status.State == a2a.TaskStateCanceled {
				return
			}
		case <-grace.C:
			return
		}
	}
}

func (h *Handler) handleTasksResubscribe(ctx context.Context, raw json.RawMessage) (<-chan *a2a.Event, *a2a.JSONRPCError) {
	params, perr := decodeParams[a2a.TaskIDParams](raw, h.validate)
	if perr != nil {
		return nil, perr
	}

	task, err := h.store.GetTask(ctx, params.ID, nil)
	if err != nil {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, params.ID)
	}

	snapshot := &a2a.Event{Type: a2a.EventTypeTask, TaskID: task.ID, ContextID: task.ContextID, Task: task}

	out := make(chan *a2a.Event, 1)
	out <- snapshot

	if task.Status.State.Terminal() {
		close(out)
		return out, nil
	}

	if _, ok := h.lookupQueue(params.ID); !ok {
		close(out)
		return out, nil
	}

	sseEvents, unregister := h.push.SubscribeSSE(params.ID, newConnID())
	rest := sseClosingStream(ctx, sseEvents, unregister)
	go func() {
		defer close(out)
		for event := range rest {
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (h *Handler) handlePushConfigSet(ctx context.Context, raw json.RawMessage) (any, *a2a.JSONRPCError) {
	if !h.opts.PushNotifications {
		return nil, a2a.NewError(a2a.CodeCapabilityUnsupported, "push notifications are not enabled")
	}
	params, perr := decodeParams[a2a.TaskPushNotificationConfigSetParams](raw, h.validate)
	if perr != nil {
		return nil, perr
	}
	if _, err := h.store.GetTask(ctx, params.TaskID, nil); err != nil {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, params.TaskID)
	}

	saved, err := h.push.SetPushConfig(ctx, params.TaskID, params.PushNotificationConfig)
	if err != nil {
		return nil, a2a.NewError(a2a.CodeInternalError, nil)
	}
	return a2a.TaskPushNotificationConfig{TaskID: params.TaskID, PushNotificationConfig: saved}, nil
}

func (h *Handler) handlePushConfigGet(ctx context.Context, raw json.RawMessage) (any, *a2a.JSONRPCError) {
	params, perr := decodeParams[a2a.TaskPushNotificationConfigGetParams](raw, h.validate)
	if perr != nil {
		return nil, perr
	}
	if _, err := h.store.GetTask(ctx, params.ID, nil); err != nil {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, params.ID)
	}

	cfg, err := h.push.GetPushConfig(ctx, params.ID, params.ConfigID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, a2a.Errorf(a2a.CodeTaskNotFound, "push notification config not found for task %q", params.ID)
		}
		return nil, a2a.NewError(a2a.CodeInternalError, nil)
	}
	return a2a.TaskPushNotificationConfig{TaskID: params.ID, PushNotificationConfig: cfg}, nil
}

func (h *Handler) handlePushConfigList(ctx context.Context, raw json.RawMessage) (any, *a2a.JSONRPCError) {
	params, perr := decodeParams[a2a.TaskPushNotificationConfigListParams](raw, h.validate)
	if perr != nil {
		return nil, perr
	}
	if _, err := h.store.GetTask(ctx, params.ID, nil); err != nil {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, params.ID)
	}

	configs, err := h.push.ListPushConfigs(ctx, params.ID)
	if err != nil {
		return nil, a2a.NewError(a2a.CodeInternalError, nil)
	}
	out := make([]a2a.TaskPushNotificationConfig, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, a2a.TaskPushNotificationConfig{TaskID: params.ID, PushNotificationConfig: cfg})
	}
	return out, nil
}

func (h *Handler) handlePushConfigDelete(ctx context.Context, raw json.RawMessage) (any, *a2a.JSONRPCError) {
	params, perr := decodeParams[a2a.TaskPushNotificationConfigDeleteParams](raw, h.validate)
	if perr != nil {
		return nil, perr
	}
	if _, err := h.store.GetTask(ctx, params.ID, nil); err != nil {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, params.ID)
	}

	deleted, err := h.push.DeletePushConfig(ctx, params.ID, params.ConfigID)
	if err != nil {
		return nil, a2a.NewError(a2a.CodeInternalError, nil)
	}
	if !deleted {
		return nil, a2a.Errorf(a2a.CodeTaskNotFound, "push notification config %q not found", params.ConfigID)
	}
	return map[string]bool{"success": true}, nil
}
