// Package handler implements the request handler (spec §4.7, C8):
// method dispatch for every A2A JSON-RPC method, including the
// message/send blocking wait, message/stream and tasks/resubscribe
// event iterators, and push-notification config CRUD.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/agent-protocol/a2a-server/internal/jsonrpc2"
	"github.com/agent-protocol/a2a-server/internal/pushnotify"
	"github.com/agent-protocol/a2a-server/internal/taskmanager"
	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/eventqueue"
	"github.com/agent-protocol/a2a-server/pkg/executor"
	"github.com/agent-protocol/a2a-server/pkg/store"
)

// RequestMeta carries the context extracted from the HTTP layer (spec
// §4.8 "Context extraction") into the handler and, from there, into the
// executor's RequestContext.
type RequestMeta struct {
	RemoteAddr string
	UserAgent  string
	Headers    map[string]string
	Principal  string
}

// Options configures a Handler's behavior (spec §6).
type Options struct {
	SendTimeout        time.Duration // message/send bounded wait, default 30s
	CancelGrace        time.Duration // tasks/cancel grace period, default 100ms
	EventQueueCapacity int
	MaxHistoryLength   int
	StreamingEnabled   bool
	PushNotifications  bool
}

// DefaultOptions matches spec.md §6's documented defaults.
func DefaultOptions() Options {
	return Options{
		SendTimeout:        30 * time.Second,
		CancelGrace:        100 * time.Millisecond,
		EventQueueCapacity: eventqueue.DefaultCapacity,
		MaxHistoryLength:   100,
		StreamingEnabled:   true,
		PushNotifications:  true,
	}
}

// Handler routes every A2A JSON-RPC method.
type Handler struct {
	store    store.TaskStore
	manager  *taskmanager.Manager
	push     *pushnotify.Manager
	executor executor.AgentExecutor
	card     a2a.AgentCard
	extendedCard *a2a.AgentCard
	opts     Options
	validate *validator.Validate
	logger   *slog.Logger

	mu      sync.Mutex
	queues  map[string]*eventqueue.Queue // live queues by task id, for resubscribe
}

// New builds a Handler. extendedCard may be nil; it is only served when
// card.SupportsAuthenticatedExtendedCard is true.
func New(taskStore store.TaskStore, manager *taskmanager.Manager, push *pushnotify.Manager, agentExecutor executor.AgentExecutor, card a2a.AgentCard, extendedCard *a2a.AgentCard, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:        taskStore,
		manager:      manager,
		push:         push,
		executor:     agentExecutor,
		card:         card,
		extendedCard: extendedCard,
		opts:         opts,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger,
		queues:       make(map[string]*eventqueue.Queue),
	}
}

// Handle dispatches req. allowStream permits event-iterator methods
// (message/stream, tasks/resubscribe); a batch element must pass
// allowStream=false per spec §4.7 "a streaming method in a batch is
// rejected with invalid-request".
//
// Exactly one of (result, stream) is populated on success; rpcErr is
// non-nil on failure.
func (h *Handler) Handle(ctx context.Context, meta RequestMeta, req jsonrpc2.Request, allowStream bool) (result any, stream <-chan *a2a.Event, rpcErr *a2a.JSONRPCError) {
	streaming := req.Method == "message/stream" || req.Method == "tasks/resubscribe"
	if streaming && !allowStream {
		return nil, nil, a2a.Errorf(a2a.CodeInvalidRequest, "method %q cannot appear in a batch", req.Method)
	}
	if streaming && !h.opts.StreamingEnabled {
		return nil, nil, a2a.NewError(a2a.CodeCapabilityUnsupported, "streaming is not enabled")
	}

	switch req.Method {
	case "message/send":
		result, rpcErr = h.handleMessageSend(ctx, meta, req.Params)
	case "message/stream":
		stream, rpcErr = h.handleMessageStream(ctx, meta, req.Params)
	case "tasks/get":
		result, rpcErr = h.handleTasksGet(ctx, req.Params)
	case "tasks/cancel":
		result, rpcErr = h.handleTasksCancel(ctx, meta, req.Params)
	case "tasks/resubscribe":
		stream, rpcErr = h.handleTasksResubscribe(ctx, req.Params)
	case "tasks/pushNotificationConfig/set":
		result, rpcErr = h.handlePushConfigSet(ctx, req.Params)
	case "tasks/pushNotificationConfig/get":
		result, rpcErr = h.handlePushConfigGet(ctx, req.Params)
	case "tasks/pushNotificationConfig/list":
		result, rpcErr = h.handlePushConfigList(ctx, req.Params)
	case "tasks/pushNotificationConfig/delete":
		result, rpcErr = h.handlePushConfigDelete(ctx, req.Params)
	case "agent/getCard":
		result, rpcErr = h.handleGetCard()
	case "agent/getAuthenticatedExtendedCard":
		result, rpcErr = h.handleGetExtendedCard(meta)
	default:
		rpcErr = a2a.Errorf(a2a.CodeMethodNotFound, "unknown method %q", req.Method)
	}
	return result, stream, rpcErr
}

func decodeParams[T any](raw json.RawMessage, v *validator.Validate) (*T, *a2a.JSONRPCError) {
	var out T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, a2a.Errorf(a2a.CodeInvalidParams, "invalid params: %v", err)
		}
	}
	if err := v.Struct(&out); err != nil {
		return nil, a2a.Errorf(a2a.CodeInvalidParams, "invalid params: %v", err)
	}
	return &out, nil
}

func (h *Handler) registerQueue(taskID string, q *eventqueue.Queue) {
	h.mu.Lock()
	h.queues[taskID] = q
	h.mu.Unlock()
}

func (h *Handler) unregisterQueue(taskID string, q *eventqueue.Queue) {
	h.mu.Lock()
	if h.queues[taskID] == q {
		delete(h.queues, taskID)
	}
	h.mu.Unlock()
}

func (h *Handler) lookupQueue(taskID string) (*eventqueue.Queue, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.queues[taskID]
	return q, ok
}

func newMessageID() string { return uuid.NewString() }

// newConnID generates an id for a live SSE subscription registered with
// pushnotify.Manager (spec §4.6's SSE registry, keyed by task id and
// connection id).
func newConnID() string { return uuid.NewString() }
