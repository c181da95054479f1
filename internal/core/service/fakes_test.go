package service

import (
	"time"

	"github.com/Wyydra/callrelay/internal/core/domain"
)

type delivery struct {
	conn domain.ConnectionID
	evt  domain.Event
}

// recorder is a port.RealTimeGateway that keeps everything it was asked to
// deliver.
type recorder struct {
	sent       []delivery
	broadcasts []domain.Event
	groups     map[domain.CallID]map[domain.ConnectionID]bool
	closed     []domain.CallID
	// dead connections refuse every Send.
	dead map[domain.ConnectionID]bool
}

func newRecorder() *recorder {
	return &recorder{
		groups: make(map[domain.CallID]map[domain.ConnectionID]bool),
		dead:   make(map[domain.ConnectionID]bool),
	}
}

func (r *recorder) Send(conn domain.ConnectionID, evt domain.Event) bool {
	if r.dead[conn] {
		return false
	}
	r.sent = append(r.sent, delivery{conn, evt})
	return true
}

func (r *recorder) Broadcast(evt domain.Event) {
	r.broadcasts = append(r.broadcasts, evt)
}

func (r *recorder) Publish(call domain.CallID, evt domain.Event, except domain.ConnectionID) {
	for conn := range r.groups[call] {
		if conn != except {
			r.sent = append(r.sent, delivery{conn, evt})
		}
	}
}

func (r *recorder) Subscribe(call domain.CallID, conn domain.ConnectionID) {
	if r.groups[call] == nil {
		r.groups[call] = make(map[domain.ConnectionID]bool)
	}
	r.groups[call][conn] = true
}

func (r *recorder) Unsubscribe(call domain.CallID, conn domain.ConnectionID) {
	delete(r.groups[call], conn)
}

func (r *recorder) CloseGroup(call domain.CallID) {
	delete(r.groups, call)
	r.closed = append(r.closed, call)
}

// to returns the events delivered to conn, in order.
func (r *recorder) to(conn domain.ConnectionID) []domain.Event {
	var out []domain.Event
	for _, d := range r.sent {
		if d.conn == conn {
			out = append(out, d.evt)
		}
	}
	return out
}

func (r *recorder) ofType(conn domain.ConnectionID, typ domain.EventType) []domain.Event {
	var out []domain.Event
	for _, evt := range r.to(conn) {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

func (r *recorder) statusChanges(user domain.UserID, status domain.PresenceStatus) int {
	n := 0
	for _, evt := range r.broadcasts {
		if c, ok := evt.Data.(domain.UserStatusChange); ok && c.UserID == user && c.Status == status {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.sent = nil
	r.broadcasts = nil
}

// manualScheduler holds timers until the test fires them.
type manualScheduler struct {
	pending []scheduled
}

type scheduled struct {
	after time.Duration
	job   func()
}

func (s *manualScheduler) AfterFunc(d time.Duration, job func()) {
	s.pending = append(s.pending, scheduled{d, job})
}

// fire runs every pending job in scheduling order.
func (s *manualScheduler) fire() int {
	jobs := s.pending
	s.pending = nil
	for _, j := range jobs {
		j.job()
	}
	return len(jobs)
}

type fakeDirectory map[domain.UserID]domain.Role

func (d fakeDirectory) Authenticate(username, password string) (domain.User, error) {
	if role, ok := d[domain.UserID(username)]; ok && password == "P" {
		return domain.User{ID: domain.UserID(username), Role: role}, nil
	}
	return domain.User{}, domain.NewError(domain.ErrUnauthorized, "Invalid username or password")
}

func (d fakeDirectory) Lookup(id domain.UserID) (domain.User, bool) {
	role, ok := d[id]
	return domain.User{ID: id, Role: role}, ok
}

func (d fakeDirectory) ListByRole(role domain.Role) []domain.User {
	var out []domain.User
	for id, r := range d {
		if r == role {
			out = append(out, domain.User{ID: id, Role: r})
		}
	}
	return out
}

func (d fakeDirectory) List() []domain.User {
	var out []domain.User
	for id, r := range d {
		out = append(out, domain.User{ID: id, Role: r})
	}
	return out
}

var testDirectory = fakeDirectory{
	"tech1":   domain.RoleTechnician,
	"expert1": domain.RoleExpert,
	"expert2": domain.RoleExpert,
}

type env struct {
	gw    *recorder
	sched *manualScheduler
	sig   *SignalingService
}

func newEnv() *env {
	gw := newRecorder()
	sched := &manualScheduler{}
	sig := NewSignalingService(Options{
		Gateway:   gw,
		Scheduler: sched,
		Directory: testDirectory,
	})
	return &env{gw: gw, sched: sched, sig: sig}
}

func boolPtr(b bool) *bool {
	return &b
}
