package service

import (
	"time"

	"github.com/Wyydra/callrelay/internal/core/domain"
	"github.com/Wyydra/callrelay/internal/core/port"
	"github.com/rs/zerolog/log"
)

const DefaultGracePeriod = 2 * time.Second

type Options struct {
	Gateway     port.RealTimeGateway
	Scheduler   port.Scheduler
	Directory   port.UserDirectory
	Metrics     port.Metrics
	GracePeriod time.Duration
}

// SignalingService ties connections to users and fronts the presence, call
// and relay services for the transport adapters.
type SignalingService struct {
	Presence *PresenceRegistry
	Calls    *CallService
	Relay    *RelayService

	gateway   port.RealTimeGateway
	scheduler port.Scheduler
	grace     time.Duration

	bindings map[domain.ConnectionID]domain.UserID
}

func NewSignalingService(opts Options) *SignalingService {
	if opts.Metrics == nil {
		opts.Metrics = port.NopMetrics{}
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	presence := NewPresenceRegistry(opts.Gateway, opts.Metrics)
	return &SignalingService{
		Presence:  presence,
		Calls:     NewCallService(presence, opts.Gateway, opts.Directory, opts.Metrics),
		Relay:     NewRelayService(presence, opts.Gateway, opts.Metrics),
		gateway:   opts.Gateway,
		scheduler: opts.Scheduler,
		grace:     opts.GracePeriod,
		bindings:  make(map[domain.ConnectionID]domain.UserID),
	}
}

// Register makes conn the live connection of user.
func (s *SignalingService) Register(conn domain.ConnectionID, user domain.UserID) error {
	if user == "" {
		return domain.NewError(domain.ErrValidation, "Missing userId")
	}
	s.bind(conn, user)
	s.Presence.Register(user, conn)
	return nil
}

// Logout takes user offline at once. The connection stays open and bound.
func (s *SignalingService) Logout(user domain.UserID) error {
	if user == "" {
		return domain.NewError(domain.ErrValidation, "Missing userId")
	}
	s.Presence.Logout(user)
	return nil
}

// JoinCall binds conn to the joining user before joining, the same as an
// implicit register. Online status is only announced when the mapping
// actually changes.
func (s *SignalingService) JoinCall(conn domain.ConnectionID, req domain.JoinRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	s.bind(conn, req.UserID)
	if current, ok := s.Presence.Resolve(req.UserID); !ok || current != conn {
		s.Presence.Register(req.UserID, conn)
	}
	return s.Calls.JoinDirect(conn, req)
}

func (s *SignalingService) EndCall(conn domain.ConnectionID, req domain.EndCallRequest) error {
	user, err := s.boundUser(conn)
	if err != nil {
		return err
	}
	return s.Calls.EndCall(conn, user, req)
}

func (s *SignalingService) Forward(conn domain.ConnectionID, req domain.SignalRequest) error {
	user, err := s.boundUser(conn)
	if err != nil {
		return err
	}
	return s.Relay.Forward(user, req)
}

// UserFor returns the user conn registered as.
func (s *SignalingService) UserFor(conn domain.ConnectionID) (domain.UserID, bool) {
	user, ok := s.bindings[conn]
	return user, ok
}

// Disconnect is called once conn is gone. The user stays online for the
// grace period so a reload or brief network drop goes unnoticed.
func (s *SignalingService) Disconnect(conn domain.ConnectionID) {
	user, ok := s.bindings[conn]
	if !ok {
		return
	}
	delete(s.bindings, conn)

	log.Debug().Str("user_id", user.String()).Str("conn_id", conn.String()).Dur("grace", s.grace).Msg("Connection lost, waiting for reconnect")
	s.scheduler.AfterFunc(s.grace, func() {
		s.expire(user, conn)
	})
}

// expire runs when the grace period of conn ends. It must read the live
// registry: a register that happened in the meantime wins. A user that is
// already offline, after a logout, still leaves its calls.
func (s *SignalingService) expire(user domain.UserID, conn domain.ConnectionID) bool {
	current, ok := s.Presence.Resolve(user)
	if ok && current != conn {
		return false
	}
	if !ok && s.isBound(user) {
		return false
	}
	calls := s.Calls.RemoveUser(user)
	if !ok {
		if len(calls) > 0 {
			log.Info().Str("user_id", user.String()).Int("calls_left", len(calls)).Msg("Offline user removed from calls")
		}
		return false
	}
	s.Presence.MarkOffline(user, conn)

	log.Info().Str("user_id", user.String()).Int("calls_left", len(calls)).Msg("Grace period expired")
	return true
}

// bind points conn at user. A different user the connection spoke for
// until now leaves its calls and goes offline at once, since no socket is
// left that could reconnect it.
func (s *SignalingService) bind(conn domain.ConnectionID, user domain.UserID) {
	prev, ok := s.bindings[conn]
	s.bindings[conn] = user
	if !ok || prev == user {
		return
	}
	current, online := s.Presence.Resolve(prev)
	if online && current != conn {
		return
	}
	if !online && s.isBound(prev) {
		return
	}
	calls := s.Calls.RemoveUser(prev)
	for _, id := range calls {
		s.gateway.Unsubscribe(id, conn)
	}
	s.Presence.MarkOffline(prev, conn)
	log.Info().Str("user_id", prev.String()).Str("conn_id", conn.String()).Str("new_user_id", user.String()).Msg("Connection switched user")
}

func (s *SignalingService) isBound(user domain.UserID) bool {
	for _, u := range s.bindings {
		if u == user {
			return true
		}
	}
	return false
}

func (s *SignalingService) boundUser(conn domain.ConnectionID) (domain.UserID, error) {
	user, ok := s.bindings[conn]
	if !ok {
		return "", domain.NewError(domain.ErrValidation, "Connection is not registered")
	}
	return user, nil
}
