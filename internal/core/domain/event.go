package domain

import "encoding/json"

type EventType string

// Inbound events.
const (
	EventRegister           EventType = "register"
	EventReconnectAfterCall EventType = "reconnect-after-call"
	EventJoinCall           EventType = "join-call"
	EventEndCall            EventType = "end-call"
	EventLogout             EventType = "logout"
	EventPing               EventType = "ping"
)

// Events that travel in both directions.
const (
	EventCallRequest  EventType = "call-request"
	EventCallResponse EventType = "call-response"
	EventOffer        EventType = "offer"
	EventAnswer       EventType = "answer"
	EventICECandidate EventType = "ice-candidate"
	EventAnnotation   EventType = "annotation"
)

// Outbound events.
const (
	EventUserStatusChange      EventType = "user-status-change"
	EventUserJoined            EventType = "user-joined"
	EventUserLeft              EventType = "user-left"
	EventExistingUsers         EventType = "existing-users"
	EventExistingAnnotations   EventType = "existing-annotations"
	EventCallEnded             EventType = "call-ended"
	EventCallEndedSuccessfully EventType = "call-ended-successfully"
	EventError                 EventType = "error"
	EventPong                  EventType = "pong"
)

// Event is one outbound message. Data is encoded as the message body.
type Event struct {
	Type EventType
	Data any
}

type UserStatusChange struct {
	UserID UserID         `json:"userId"`
	Status PresenceStatus `json:"status"`
}

type CallRequestNotice struct {
	CallID CallID `json:"callId"`
	From   UserID `json:"from"`
}

type CallResponseNotice struct {
	CallID   CallID `json:"callId"`
	From     UserID `json:"from"`
	Accepted bool   `json:"accepted"`
}

type UserJoined struct {
	UserID     UserID `json:"userId"`
	Role       Role   `json:"role,omitempty"`
	CallID     CallID `json:"callId"`
	TotalUsers int    `json:"totalUsers"`
}

type UserLeft struct {
	UserID UserID `json:"userId"`
	CallID CallID `json:"callId"`
}

type ExistingUsers struct {
	Users []UserID `json:"users"`
}

type ExistingAnnotations struct {
	Annotations []Annotation `json:"annotations"`
}

// SignalNotice carries a forwarded negotiation payload. Exactly one of
// Offer, Answer and Candidate is set, matching the event type.
type SignalNotice struct {
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	From      UserID          `json:"from"`
	CallID    CallID          `json:"callId"`
}

type CallEnded struct {
	From   UserID `json:"from"`
	CallID CallID `json:"callId"`
}

type CallEndedSuccessfully struct {
	CallID  CallID `json:"callId"`
	Message string `json:"message"`
}

type ErrorNotice struct {
	Message string `json:"message"`
}

func NewErrorEvent(err error) Event {
	return Event{Type: EventError, Data: ErrorNotice{Message: err.Error()}}
}
