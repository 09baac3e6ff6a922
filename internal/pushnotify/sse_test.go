package pushnotify

import (
	"testing"
	"time"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

func TestSSERegistryBroadcastsToAllConnections(t *testing.T) {
	r := newSSERegistry()
	ch1, unreg1 := r.Register("t1", "conn1")
	ch2, unreg2 := r.Register("t1", "conn2")
	defer unreg1()
	defer unreg2()

	r.Broadcast(&a2a.Event{TaskID: "t1", Type: a2a.EventTypeStatusUpdate})

	for _, ch := range []<-chan *a2a.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.TaskID != "t1" {
				t.Fatalf("unexpected event: %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}
}

func TestSSERegistryIgnoresOtherTasks(t *testing.T) {
	r := newSSERegistry()
	ch, unreg := r.Register("t1", "conn1")
	defer unreg()

	r.Broadcast(&a2a.Event{TaskID: "other", Type: a2a.EventTypeStatusUpdate})

	select {
	case ev := <-ch:
		t.Fatalf("unexpected delivery for unrelated task: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSERegistryUnregisterClosesChannel(t *testing.T) {
	r := newSSERegistry()
	ch, unreg := r.Register("t1", "conn1")
	unreg()

	_, ok := <-ch
	if ok {
		t.Fatal("expected channel to be closed after unregister")
	}
}
