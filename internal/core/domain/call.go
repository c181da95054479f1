package domain

import (
	"time"
)

type CallStatus int

const (
	CallPending CallStatus = iota + 1
	CallActive
)

func (s CallStatus) String() string {
	switch s {
	case CallPending:
		return "pending"
	case CallActive:
		return "active"
	default:
		return "unknown"
	}
}

func (s CallStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CallSession is a live call. It is removed from the service once its last
// participant leaves, so there is no ended status.
type CallSession struct {
	ID        CallID
	StartedAt time.Time

	status       CallStatus
	participants []UserID
	annotations  *AnnotationStore
}

// NewPendingCall opens a call that waits for the initiator's peer to accept.
func NewPendingCall(id CallID, initiator UserID, now time.Time) *CallSession {
	return &CallSession{
		ID:           id,
		StartedAt:    now,
		status:       CallPending,
		participants: []UserID{initiator},
		annotations:  NewAnnotationStore(),
	}
}

// NewActiveCall opens a call with nobody in it, used when a client joins a
// call id that does not exist yet.
func NewActiveCall(id CallID, now time.Time) *CallSession {
	return &CallSession{
		ID:          id,
		StartedAt:   now,
		status:      CallActive,
		annotations: NewAnnotationStore(),
	}
}

func (c *CallSession) Status() CallStatus {
	return c.status
}

// Activate moves a pending call to active. Any other transition is refused.
func (c *CallSession) Activate() error {
	if c.status != CallPending {
		return NewError(ErrInvalidState, "Call %s is not pending", c.ID)
	}
	c.status = CallActive
	return nil
}

func (c *CallSession) Participants() []UserID {
	out := make([]UserID, len(c.participants))
	copy(out, c.participants)
	return out
}

func (c *CallSession) Len() int {
	return len(c.participants)
}

func (c *CallSession) Empty() bool {
	return len(c.participants) == 0
}

func (c *CallSession) HasParticipant(id UserID) bool {
	for _, p := range c.participants {
		if p == id {
			return true
		}
	}
	return false
}

// AddParticipant appends id unless it is already present.
func (c *CallSession) AddParticipant(id UserID) bool {
	if c.HasParticipant(id) {
		return false
	}
	c.participants = append(c.participants, id)
	return true
}

func (c *CallSession) RemoveParticipant(id UserID) bool {
	for i, p := range c.participants {
		if p == id {
			c.participants = append(c.participants[:i], c.participants[i+1:]...)
			return true
		}
	}
	return false
}

// ParticipantsExcept lists everyone but id, in join order.
func (c *CallSession) ParticipantsExcept(id UserID) []UserID {
	out := make([]UserID, 0, len(c.participants))
	for _, p := range c.participants {
		if p != id {
			out = append(out, p)
		}
	}
	return out
}

func (c *CallSession) Annotations() *AnnotationStore {
	return c.annotations
}

type CallSnapshot struct {
	CallID      CallID       `json:"callId"`
	Users       []UserID     `json:"users"`
	StartTime   int64        `json:"startTime"`
	Duration    int64        `json:"duration"`
	Annotations []Annotation `json:"annotations"`
	Status      CallStatus   `json:"status"`
}

// Snapshot copies the call for read-only projections. Times are unix
// milliseconds.
func (c *CallSession) Snapshot(now time.Time) CallSnapshot {
	return CallSnapshot{
		CallID:      c.ID,
		Users:       c.Participants(),
		StartTime:   c.StartedAt.UnixMilli(),
		Duration:    now.Sub(c.StartedAt).Milliseconds(),
		Annotations: c.annotations.Snapshot(),
		Status:      c.status,
	}
}
