package domain

import (
	"bytes"
	"encoding/json"
)

type CallRequest struct {
	CallID CallID
	From   UserID
	To     UserID
}

func (r CallRequest) Validate() error {
	if r.CallID == "" || r.From == "" || r.To == "" {
		return NewError(ErrValidation, "Missing callId, from, or to")
	}
	return nil
}

type CallResponse struct {
	CallID   CallID
	From     UserID
	To       UserID
	Accepted *bool
}

func (r CallResponse) Validate() error {
	if r.CallID == "" || r.From == "" || r.To == "" || r.Accepted == nil {
		return NewError(ErrValidation, "Missing callId, from, to, or accepted")
	}
	return nil
}

type JoinRequest struct {
	CallID CallID
	UserID UserID
	Role   Role
}

func (r JoinRequest) Validate() error {
	if r.CallID == "" || r.UserID == "" || r.Role == "" {
		return NewError(ErrValidation, "Missing callId, userId, or role")
	}
	return nil
}

type EndCallRequest struct {
	CallID CallID
	To     UserID
}

func (r EndCallRequest) Validate() error {
	if r.CallID == "" {
		return NewError(ErrValidation, "Missing callId")
	}
	return nil
}

type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "ice-candidate"
)

func (k SignalKind) Valid() bool {
	return k == SignalOffer || k == SignalAnswer || k == SignalCandidate
}

func (k SignalKind) EventType() EventType {
	return EventType(k)
}

// SignalRequest asks the relay to forward Payload to To. The payload is
// opaque, only its presence is checked.
type SignalRequest struct {
	Kind    SignalKind
	CallID  CallID
	To      UserID
	Payload json.RawMessage
}

func (r SignalRequest) Validate() error {
	if r.CallID == "" || r.To == "" || isEmptyPayload(r.Payload) {
		return NewError(ErrValidation, "Missing required fields in %s", r.Kind.label())
	}
	return nil
}

// Notice builds the message the target receives.
func (r SignalRequest) Notice(from UserID) SignalNotice {
	n := SignalNotice{From: from, CallID: r.CallID}
	switch r.Kind {
	case SignalOffer:
		n.Offer = r.Payload
	case SignalAnswer:
		n.Answer = r.Payload
	case SignalCandidate:
		n.Candidate = r.Payload
	}
	return n
}

func (k SignalKind) label() string {
	if k == SignalCandidate {
		return "ICE candidate"
	}
	return string(k)
}

func isEmptyPayload(p json.RawMessage) bool {
	p = bytes.TrimSpace(p)
	return len(p) == 0 || bytes.Equal(p, []byte("null")) || bytes.Equal(p, []byte(`""`))
}

type AnnotationRequest struct {
	CallID   CallID
	ID       string
	Text     string
	X        *float64
	Y        *float64
	From     UserID
	ObjectID string
}

func (r AnnotationRequest) Validate() error {
	if r.CallID == "" || r.ID == "" || r.Text == "" || r.X == nil || r.Y == nil || r.From == "" {
		return NewError(ErrValidation, "Missing required fields in annotation")
	}
	return nil
}

// Annotation assumes Validate has passed.
func (r AnnotationRequest) Annotation() Annotation {
	return Annotation{
		ID:       r.ID,
		Text:     r.Text,
		X:        *r.X,
		Y:        *r.Y,
		AuthorID: r.From,
		ObjectID: r.ObjectID,
	}
}
