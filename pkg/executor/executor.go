// Package executor defines the contract a concrete agent implementation
// fulfills (spec §4.4, C5): Execute performs the agent's work and
// publishes events; Cancel requests early termination. The business
// logic behind a real agent is out of scope here (spec §1) — this
// package only carries the interface plus a trivial reference
// implementation used by tests and demos.
package executor

import (
	"context"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
	"github.com/agent-protocol/a2a-server/pkg/eventqueue"
)

// RequestContext carries everything an executor needs to act on one
// message/send or message/stream invocation.
type RequestContext struct {
	TaskID      string
	ContextID   string
	Message     *a2a.Message
	CurrentTask *a2a.Task // nil for a brand-new task

	// RemoteAddr, UserAgent, Headers, and Principal are populated by the
	// HTTP entrypoint's context extraction (spec §4.8) and are available
	// to executors that need request provenance (e.g. for auth checks
	// the executor itself enforces).
	RemoteAddr string
	UserAgent  string
	Headers    map[string]string
	Principal  string

	Metadata map[string]any
}

// Publisher is the subset of eventqueue.Queue an executor needs: it may
// only publish, never subscribe or close (the request handler owns the
// queue's lifecycle).
type Publisher interface {
	Publish(ctx context.Context, event *a2a.Event) error
}

var _ Publisher = (*eventqueue.Queue)(nil)

// AgentExecutor is the contract a concrete agent implementation
// fulfills.
type AgentExecutor interface {
	// Execute performs the agent's work for reqCtx, publishing events to
	// queue as it progresses. It must publish at least one terminal
	// status update (completed/failed) for its task, or return an error;
	// the request handler translates a returned error into a failed status
	// event carrying the error's message.
	Execute(ctx context.Context, reqCtx *RequestContext, queue Publisher) error

	// Cancel publishes a canceled status update for the task identified
	// by reqCtx. It may be a no-op if the task is not currently active.
	Cancel(ctx context.Context, reqCtx *RequestContext, queue Publisher) error
}
