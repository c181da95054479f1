package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Wyydra/callrelay/internal/core/domain"
)

type fakeClient struct {
	id domain.ConnectionID

	mu     sync.Mutex
	events []domain.Event
	closed bool
	fail   bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{id: domain.NewConnectionID()}
}

func (c *fakeClient) ID() domain.ConnectionID { return c.id }

func (c *fakeClient) Send(evt domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("buffer full")
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) received() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.events...)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func do(t *testing.T, h *Hub, job func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Do(ctx, job); err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestHubPublishSkipsSender(t *testing.T) {
	h := startHub(t)
	a, b, c := newFakeClient(), newFakeClient(), newFakeClient()
	for _, cl := range []*fakeClient{a, b, c} {
		h.Register(cl)
	}

	evt := domain.Event{Type: domain.EventAnnotation}
	do(t, h, func() {
		h.Subscribe("call", a.ID())
		h.Subscribe("call", b.ID())
		h.Publish("call", evt, a.ID())
	})

	if len(a.received()) != 0 {
		t.Error("sender should be skipped")
	}
	if len(b.received()) != 1 {
		t.Error("member should receive the event")
	}
	if len(c.received()) != 0 {
		t.Error("non-member should not receive the event")
	}
}

func TestHubBroadcastAndSend(t *testing.T) {
	h := startHub(t)
	a, b := newFakeClient(), newFakeClient()
	h.Register(a)
	h.Register(b)

	var known, unknown bool
	do(t, h, func() {
		h.Broadcast(domain.Event{Type: domain.EventUserStatusChange})
		known = h.Send(a.ID(), domain.Event{Type: domain.EventPong})
		unknown = h.Send(domain.NewConnectionID(), domain.Event{Type: domain.EventPong})
	})

	if !known || unknown {
		t.Fatalf("unexpected send results known=%v unknown=%v", known, unknown)
	}
	if len(a.received()) != 2 || len(b.received()) != 1 {
		t.Fatalf("unexpected deliveries a=%d b=%d", len(a.received()), len(b.received()))
	}
}

func TestHubUnregisterCallsOnDisconnect(t *testing.T) {
	h := NewHub()
	gone := make(chan domain.ConnectionID, 1)
	h.OnDisconnect(func(id domain.ConnectionID) { gone <- id })
	go h.Run()
	t.Cleanup(h.Stop)

	a := newFakeClient()
	h.Register(a)
	do(t, h, func() { h.Subscribe("call", a.ID()) })
	h.Unregister(a)

	select {
	case id := <-gone:
		if id != a.ID() {
			t.Fatalf("unexpected id %v", id)
		}
	case <-time.After(time.Second):
		t.Fatal("OnDisconnect not called")
	}

	var members, clients int
	do(t, h, func() {
		members = len(h.groups["call"])
		clients = h.Len()
	})
	if members != 0 || clients != 0 {
		t.Fatalf("client not cleaned up: members=%d clients=%d", members, clients)
	}
	if !a.isClosed() {
		t.Fatal("client should be closed")
	}
}

func TestHubSubscribeUnknownConnection(t *testing.T) {
	h := startHub(t)
	var groups int
	do(t, h, func() {
		h.Subscribe("call", domain.NewConnectionID())
		groups = len(h.groups)
	})
	if groups != 0 {
		t.Fatal("unknown connection should not create a group")
	}
}

func TestHubClosesFailingClient(t *testing.T) {
	h := startHub(t)
	a := newFakeClient()
	a.fail = true
	h.Register(a)

	do(t, h, func() { h.Send(a.ID(), domain.Event{Type: domain.EventPong}) })
	if !a.isClosed() {
		t.Fatal("client that cannot keep up should be closed")
	}
}

func TestHubAfterFuncRunsOnLoop(t *testing.T) {
	h := startHub(t)
	fired := make(chan int, 1)
	a := newFakeClient()
	h.Register(a)

	h.AfterFunc(10*time.Millisecond, func() { fired <- h.Len() })

	select {
	case n := <-fired:
		if n != 1 {
			t.Fatalf("expected one client seen from the loop, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}

func TestHubDoAfterStop(t *testing.T) {
	h := NewHub()
	go h.Run()
	h.Stop()

	err := h.Do(context.Background(), func() {})
	if !errors.Is(err, ErrHubStopped) {
		t.Fatalf("expected ErrHubStopped, got %v", err)
	}
}
