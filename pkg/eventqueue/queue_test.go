package eventqueue

import (
	"context"
	"testing"
	"time"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

func TestPublishDeliversInOrderToEachSubscriber(t *testing.T) {
	q := New(4)
	sub1 := q.Subscribe(nil)
	sub2 := q.Subscribe(nil)

	ctx := context.Background()
	var published []*a2a.Event
	for i := 0; i < 3; i++ {
		ev := &a2a.Event{Type: a2a.EventTypeStatusUpdate, TaskID: "t1", ContextID: "c1"}
		published = append(published, ev)
		if err := q.Publish(ctx, ev); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	q.Close()

	for _, sub := range []*Subscriber{sub1, sub2} {
		var got []*a2a.Event
		for ev := range sub.Events() {
			got = append(got, ev)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 events delivered, got %d", len(got))
		}
		for i := range got {
			if got[i] != published[i] {
				t.Fatalf("event %d delivered out of publication order", i)
			}
		}
	}
}

func TestFilterExcludesUnrelatedEvents(t *testing.T) {
	q := New(4)
	sub := q.Subscribe(MatchTask("wanted"))

	ctx := context.Background()
	_ = q.Publish(ctx, &a2a.Event{Type: a2a.EventTypeTask, TaskID: "other"})
	_ = q.Publish(ctx, &a2a.Event{Type: a2a.EventTypeTask, TaskID: "wanted"})
	q.Close()

	var got []*a2a.Event
	for ev := range sub.Events() {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].TaskID != "wanted" {
		t.Fatalf("expected only the matching event, got %+v", got)
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	q := New(1)
	q.Close()
	if err := q.Publish(context.Background(), &a2a.Event{}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	q := New(4)
	sub := q.Subscribe(nil)
	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := q.Publish(ctx, &a2a.Event{TaskID: "t1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	q.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatalf("expected channel closed with no events after unsubscribe")
	}
}
