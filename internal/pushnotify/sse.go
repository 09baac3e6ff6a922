package pushnotify

import (
	"sync"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

// sseRegistry is the per-task map of live SSE subscribers, grounded in
// the pack's sammcj/go-a2a server.SSEManager: one map of connection id
// to a buffered channel per task, guarded by a single mutex, with
// delivery performed outside the lock.
type sseRegistry struct {
	mu    sync.Mutex
	byTask map[string]map[string]chan *a2a.Event
}

func newSSERegistry() *sseRegistry {
	return &sseRegistry{byTask: make(map[string]map[string]chan *a2a.Event)}
}

// Register adds a new SSE connection for taskID and returns its event
// channel and a function to remove it.
func (r *sseRegistry) Register(taskID, connID string) (<-chan *a2a.Event, func()) {
	ch := make(chan *a2a.Event, 64)

	r.mu.Lock()
	conns, ok := r.byTask[taskID]
	if !ok {
		conns = make(map[string]chan *a2a.Event)
		r.byTask[taskID] = conns
	}
	conns[connID] = ch
	r.mu.Unlock()

	return ch, func() { r.unregister(taskID, connID) }
}

func (r *sseRegistry) unregister(taskID, connID string) {
	r.mu.Lock()
	conns, ok := r.byTask[taskID]
	if !ok {
		r.mu.Unlock()
		return
	}
	ch, ok := conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.byTask, taskID)
	}
	r.mu.Unlock()
	close(ch)
}

// Broadcast fans event out to every connection registered for its task.
// A connection whose buffer is full is dropped (unregistered) rather
// than blocking the rest of the fan-out - a stalled SSE client must not
// back up delivery to everyone else (spec's idle-subscriber policy).
func (r *sseRegistry) Broadcast(event *a2a.Event) {
	r.mu.Lock()
	conns := r.byTask[event.TaskID]
	targets := make(map[string]chan *a2a.Event, len(conns))
	for id, ch := range conns {
		targets[id] = ch
	}
	r.mu.Unlock()

	for connID, ch := range targets {
		select {
		case ch <- event:
		default:
			r.unregister(event.TaskID, connID)
		}
	}
}
