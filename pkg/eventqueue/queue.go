// Package eventqueue implements the per-request bounded event channel
// (spec §4.3, C4) that mediates between an agent executor and its
// subscribers (the request handler and the push-notification manager).
package eventqueue

import (
	"context"
	"errors"
	"sync"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

// DefaultCapacity is the default bound K (spec §4.3).
const DefaultCapacity = 256

// ErrClosed is returned by Publish once the queue has been closed.
var ErrClosed = errors.New("eventqueue: closed")

// Filter decides whether a subscriber wants to see an event. A nil
// Filter matches everything.
type Filter func(taskID, contextID string, eventType a2a.EventType) bool

// MatchTask returns a Filter that only admits events for the given task id.
func MatchTask(taskID string) Filter {
	return func(tID, _ string, _ a2a.EventType) bool { return tID == taskID }
}

// Queue is a bounded, typed, multi-subscriber event channel. Producers
// call Publish; consumers call Subscribe to get an independent,
// filtered, ordered view. Events are delivered to each subscriber in
// publication order; there is no cross-producer ordering guarantee
// beyond happens-before of Publish calls, because a single internal
// dispatcher goroutine serializes fan-out.
type Queue struct {
	in chan *a2a.Event

	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	closed      bool
	closeOnce   sync.Once
	dispatchWG  sync.WaitGroup
}

// New creates a Queue with the given capacity (<=0 uses DefaultCapacity)
// and starts its dispatcher goroutine.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		in:          make(chan *a2a.Event, capacity),
		subscribers: make(map[*Subscriber]struct{}),
	}
	q.dispatchWG.Add(1)
	go q.dispatchLoop()
	return q
}

// Publish enqueues event. It blocks while the internal buffer is full
// (back-pressure) or ctx is done, whichever comes first.
func (q *Queue) Publish(ctx context.Context, event *a2a.Event) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}

	select {
	case q.in <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscriber is one consumer's filtered, ordered view of a Queue.
type Subscriber struct {
	q      *Queue
	filter Filter
	ch     chan *a2a.Event
}

// Events returns the channel to range over. It closes when the Queue
// closes and all buffered events matching this subscriber have been
// delivered, or when Unsubscribe is called.
func (s *Subscriber) Events() <-chan *a2a.Event { return s.ch }

// Unsubscribe stops delivery to this subscriber and releases its buffer.
// Safe to call more than once.
func (s *Subscriber) Unsubscribe() {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()
	if _, ok := s.q.subscribers[s]; !ok {
		return
	}
	delete(s.q.subscribers, s)
	close(s.ch)
}

// Subscribe registers a new subscriber. filter may be nil to match every
// event. The subscriber's channel is capacity-matched to the queue so a
// burst fully buffered upstream can still be delivered without the
// dispatcher blocking on this one subscriber under normal load; a
// subscriber that falls permanently behind is the caller's concern (see
// Design Notes on idle-write timeouts, enforced by subscribers of this
// package, not the package itself).
func (q *Queue) Subscribe(filter Filter) *Subscriber {
	if filter == nil {
		filter = func(string, string, a2a.EventType) bool { return true }
	}
	sub := &Subscriber{q: q, filter: filter, ch: make(chan *a2a.Event, cap(q.in))}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		close(sub.ch)
		return sub
	}
	q.subscribers[sub] = struct{}{}
	return sub
}

// Close drains any events already buffered in the queue to existing
// subscribers, then signals end-of-stream to all of them. Subsequent
// Publish calls fail with ErrClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.in)
	})
	q.dispatchWG.Wait()
}

func (q *Queue) dispatchLoop() {
	defer q.dispatchWG.Done()
	for event := range q.in {
		q.mu.Lock()
		subs := make([]*Subscriber, 0, len(q.subscribers))
		for sub := range q.subscribers {
			subs = append(subs, sub)
		}
		q.mu.Unlock()

		for _, sub := range subs {
			if !sub.filter(event.TaskID, event.ContextID, event.Type) {
				continue
			}
			sub.ch <- event
		}
	}

	q.mu.Lock()
	q.closed = true
	for sub := range q.subscribers {
		close(sub.ch)
	}
	q.subscribers = make(map[*Subscriber]struct{})
	q.mu.Unlock()
}
