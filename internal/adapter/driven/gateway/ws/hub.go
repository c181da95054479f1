package ws

import (
	"context"
	"errors"
	"time"

	"github.com/Wyydra/callrelay/internal/core/domain"
	"github.com/rs/zerolog/log"
)

var ErrHubStopped = errors.New("hub stopped")

// Hub is the event loop of the server. Every change to connection, presence
// and call state runs as a job on its single goroutine, so jobs never
// interleave. It implements port.RealTimeGateway and port.Scheduler.
type Hub struct {
	clients map[domain.ConnectionID]Client
	groups  map[domain.CallID]map[domain.ConnectionID]struct{}

	register   chan Client
	unregister chan Client
	jobs       chan func()
	quit       chan struct{}
	done       chan struct{}

	onDisconnect func(domain.ConnectionID)
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[domain.ConnectionID]Client),
		groups:     make(map[domain.CallID]map[domain.ConnectionID]struct{}),
		register:   make(chan Client),
		unregister: make(chan Client),
		jobs:       make(chan func(), 256),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// OnDisconnect sets the callback run on the loop after a client is removed.
// Call it before Run.
func (h *Hub) OnDisconnect(fn func(domain.ConnectionID)) {
	h.onDisconnect = fn
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			for id, client := range h.clients {
				client.Close()
				delete(h.clients, id)
			}
			return

		case client := <-h.register:
			h.clients[client.ID()] = client
			log.Info().Str("conn_id", client.ID().String()).Int("count", len(h.clients)).Msg("Client registered")

		case client := <-h.unregister:
			h.remove(client.ID())

		case job := <-h.jobs:
			job()
		}
	}
}

func (h *Hub) Register(c Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		c.Close()
	}
}

func (h *Hub) Unregister(c Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Post queues job on the loop without waiting for it.
func (h *Hub) Post(job func()) {
	select {
	case h.jobs <- job:
	case <-h.quit:
	}
}

// Do runs job on the loop and waits until it has finished.
func (h *Hub) Do(ctx context.Context, job func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		job()
	}
	select {
	case h.jobs <- wrapped:
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc posts job to the loop once d has elapsed.
func (h *Hub) AfterFunc(d time.Duration, job func()) {
	time.AfterFunc(d, func() { h.Post(job) })
}

func (h *Hub) Stop() {
	close(h.quit)
	<-h.done
}

// The methods below are only safe on the loop.

func (h *Hub) Send(conn domain.ConnectionID, evt domain.Event) bool {
	client, ok := h.clients[conn]
	if !ok {
		return false
	}
	h.deliver(client, evt)
	return true
}

func (h *Hub) Broadcast(evt domain.Event) {
	for _, client := range h.clients {
		h.deliver(client, evt)
	}
}

func (h *Hub) Publish(call domain.CallID, evt domain.Event, except domain.ConnectionID) {
	for conn := range h.groups[call] {
		if conn == except {
			continue
		}
		if client, ok := h.clients[conn]; ok {
			h.deliver(client, evt)
		}
	}
}

func (h *Hub) Subscribe(call domain.CallID, conn domain.ConnectionID) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	members, ok := h.groups[call]
	if !ok {
		members = make(map[domain.ConnectionID]struct{})
		h.groups[call] = members
	}
	members[conn] = struct{}{}
}

func (h *Hub) Unsubscribe(call domain.CallID, conn domain.ConnectionID) {
	members, ok := h.groups[call]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(h.groups, call)
	}
}

func (h *Hub) CloseGroup(call domain.CallID) {
	delete(h.groups, call)
}

func (h *Hub) Len() int {
	return len(h.clients)
}

func (h *Hub) remove(id domain.ConnectionID) {
	client, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	for call := range h.groups {
		h.Unsubscribe(call, id)
	}
	client.Close()
	log.Info().Str("conn_id", id.String()).Int("count", len(h.clients)).Msg("Client unregistered")

	if h.onDisconnect != nil {
		h.onDisconnect(id)
	}
}

func (h *Hub) deliver(client Client, evt domain.Event) {
	if err := client.Send(evt); err != nil {
		log.Warn().Err(err).Str("conn_id", client.ID().String()).Str("event", string(evt.Type)).Msg("Error sending event, closing client")
		client.Close()
	}
}
