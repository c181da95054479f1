package service

import (
	"sort"
	"time"

	"github.com/Wyydra/callrelay/internal/core/domain"
	"github.com/Wyydra/callrelay/internal/core/port"
	"github.com/rs/zerolog/log"
)

const endedMessage = "Call ended, you remain connected"

// CallService owns every live call session. Like the rest of the core it is
// driven from a single event loop and holds no locks.
type CallService struct {
	presence  *PresenceRegistry
	gateway   port.RealTimeGateway
	directory port.UserDirectory
	metrics   port.Metrics
	now       func() time.Time

	calls map[domain.CallID]*domain.CallSession
}

func NewCallService(presence *PresenceRegistry, gateway port.RealTimeGateway, directory port.UserDirectory, metrics port.Metrics) *CallService {
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &CallService{
		presence:  presence,
		gateway:   gateway,
		directory: directory,
		metrics:   metrics,
		now:       time.Now,
		calls:     make(map[domain.CallID]*domain.CallSession),
	}
}

// CreatePendingSession opens a pending call owned by initiator. Only users
// whose role may create calls are allowed.
func (s *CallService) CreatePendingSession(initiator domain.UserID) (domain.CallID, error) {
	if initiator == "" {
		return "", domain.NewError(domain.ErrValidation, "Missing userId")
	}
	user, ok := s.directory.Lookup(initiator)
	if !ok || !user.Role.CanCreateCalls() {
		return "", domain.NewError(domain.ErrForbidden, "Only Technicians can create calls")
	}

	id := domain.NewCallID()
	for s.calls[id] != nil {
		id = domain.NewCallID()
	}
	s.calls[id] = domain.NewPendingCall(id, initiator, s.now())
	s.metrics.ActiveCalls(len(s.calls))

	log.Info().Str("call_id", id.String()).Str("user_id", initiator.String()).Msg("Call created")
	return id, nil
}

// RequestCall rings req.To about a pending call. It changes nothing.
func (s *CallService) RequestCall(req domain.CallRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	call, ok := s.calls[req.CallID]
	if !ok {
		return domain.NewError(domain.ErrNotFound, "Call not found")
	}
	if call.Status() != domain.CallPending {
		return domain.NewError(domain.ErrInvalidState, "Call %s is not pending", req.CallID)
	}
	target, ok := s.presence.Resolve(req.To)
	if !ok {
		return domain.UserNotFound(req.To)
	}

	if !s.gateway.Send(target, domain.Event{
		Type: domain.EventCallRequest,
		Data: domain.CallRequestNotice{CallID: req.CallID, From: req.From},
	}) {
		log.Debug().Str("call_id", req.CallID.String()).Str("to", req.To.String()).Msg("Call request target has no live connection")
	}
	log.Info().Str("call_id", req.CallID.String()).Str("from", req.From.String()).Str("to", req.To.String()).Msg("Call requested")
	return nil
}

// RespondToCall forwards an accept or reject to req.To. Accepting activates
// the call and adds req.From; rejecting destroys it.
func (s *CallService) RespondToCall(conn domain.ConnectionID, req domain.CallResponse) error {
	if err := req.Validate(); err != nil {
		return err
	}
	call, ok := s.calls[req.CallID]
	if !ok {
		return domain.NewError(domain.ErrNotFound, "Call not found")
	}
	target, ok := s.presence.Resolve(req.To)
	if !ok {
		return domain.UserNotFound(req.To)
	}
	accepted := *req.Accepted
	if accepted {
		if err := call.Activate(); err != nil {
			return err
		}
	}

	s.gateway.Send(target, domain.Event{
		Type: domain.EventCallResponse,
		Data: domain.CallResponseNotice{CallID: req.CallID, From: req.From, Accepted: accepted},
	})

	l := log.With().Str("call_id", req.CallID.String()).Str("from", req.From.String()).Logger()
	if !accepted {
		s.destroy(call.ID)
		l.Info().Msg("Call rejected")
		return nil
	}

	call.AddParticipant(req.From)
	s.gateway.Subscribe(call.ID, conn)
	s.gateway.Subscribe(call.ID, target)
	s.gateway.Publish(call.ID, domain.Event{
		Type: domain.EventUserJoined,
		Data: domain.UserJoined{
			UserID:     req.From,
			Role:       s.roleOf(req.From),
			CallID:     call.ID,
			TotalUsers: call.Len(),
		},
	}, domain.ConnectionID{})

	l.Info().Int("participants", call.Len()).Msg("Call accepted")
	return nil
}

// JoinDirect puts req.UserID into the call without a request/response
// handshake, creating an active call when none exists. The joiner gets the
// current participants and annotations back.
func (s *CallService) JoinDirect(conn domain.ConnectionID, req domain.JoinRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	call, ok := s.calls[req.CallID]
	if !ok {
		call = domain.NewActiveCall(req.CallID, s.now())
		s.calls[req.CallID] = call
		s.metrics.ActiveCalls(len(s.calls))
	}
	call.AddParticipant(req.UserID)
	s.gateway.Subscribe(call.ID, conn)

	s.gateway.Publish(call.ID, domain.Event{
		Type: domain.EventUserJoined,
		Data: domain.UserJoined{
			UserID:     req.UserID,
			Role:       req.Role,
			CallID:     call.ID,
			TotalUsers: call.Len(),
		},
	}, conn)
	s.gateway.Send(conn, domain.Event{
		Type: domain.EventExistingUsers,
		Data: domain.ExistingUsers{Users: call.ParticipantsExcept(req.UserID)},
	})
	s.gateway.Send(conn, domain.Event{
		Type: domain.EventExistingAnnotations,
		Data: domain.ExistingAnnotations{Annotations: call.Annotations().Snapshot()},
	})

	log.Info().
		Str("call_id", call.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("role", string(req.Role)).
		Int("participants", call.Len()).
		Msg("User joined call")
	return nil
}

// Leave drops user from the call and destroys the call once it is empty.
// Peers are not notified here.
func (s *CallService) Leave(id domain.CallID, user domain.UserID) bool {
	call, ok := s.calls[id]
	if !ok || !call.RemoveParticipant(user) {
		return false
	}
	if call.Empty() {
		s.destroy(id)
		log.Info().Str("call_id", id.String()).Msg("Call removed, no users left")
	}
	return true
}

// EndCall tells req.To the call is over, removes user from it and confirms
// to the ending connection that it stays connected.
func (s *CallService) EndCall(conn domain.ConnectionID, user domain.UserID, req domain.EndCallRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.To != "" {
		if target, ok := s.presence.Resolve(req.To); ok {
			s.gateway.Send(target, domain.Event{
				Type: domain.EventCallEnded,
				Data: domain.CallEnded{From: user, CallID: req.CallID},
			})
		}
	}
	s.Leave(req.CallID, user)
	s.gateway.Unsubscribe(req.CallID, conn)
	s.gateway.Send(conn, domain.Event{
		Type: domain.EventCallEndedSuccessfully,
		Data: domain.CallEndedSuccessfully{CallID: req.CallID, Message: endedMessage},
	})

	log.Info().Str("call_id", req.CallID.String()).Str("user_id", user.String()).Msg("User ended call")
	return nil
}

// Annotate stores the annotation on its call and shows it to everyone else
// in the call. Annotations for unknown calls are dropped.
func (s *CallService) Annotate(conn domain.ConnectionID, req domain.AnnotationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	call, ok := s.calls[req.CallID]
	if !ok {
		log.Debug().Str("call_id", req.CallID.String()).Msg("Annotation for unknown call dropped")
		return nil
	}
	a := req.Annotation()
	call.Annotations().Upsert(a)
	s.gateway.Publish(call.ID, domain.Event{Type: domain.EventAnnotation, Data: a}, conn)
	return nil
}

// RemoveUser takes user out of every call it belongs to, announcing
// user-left to each call before the removal.
func (s *CallService) RemoveUser(user domain.UserID) []domain.CallID {
	var affected []domain.CallID
	for id, call := range s.calls {
		if call.HasParticipant(user) {
			affected = append(affected, id)
		}
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i] < affected[j] })

	for _, id := range affected {
		s.gateway.Publish(id, domain.Event{
			Type: domain.EventUserLeft,
			Data: domain.UserLeft{UserID: user, CallID: id},
		}, domain.ConnectionID{})
		s.Leave(id, user)
	}
	return affected
}

func (s *CallService) Session(id domain.CallID) (domain.CallSnapshot, bool) {
	call, ok := s.calls[id]
	if !ok {
		return domain.CallSnapshot{}, false
	}
	return call.Snapshot(s.now()), true
}

// Sessions lists live calls, oldest first.
func (s *CallService) Sessions() []domain.CallSnapshot {
	now := s.now()
	out := make([]domain.CallSnapshot, 0, len(s.calls))
	for _, call := range s.calls {
		out = append(out, call.Snapshot(now))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].CallID < out[j].CallID
	})
	return out
}

func (s *CallService) destroy(id domain.CallID) {
	delete(s.calls, id)
	s.gateway.CloseGroup(id)
	s.metrics.ActiveCalls(len(s.calls))
}

func (s *CallService) roleOf(user domain.UserID) domain.Role {
	if u, ok := s.directory.Lookup(user); ok {
		return u.Role
	}
	return ""
}
