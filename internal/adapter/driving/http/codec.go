package http

import (
	"bytes"

	"github.com/Wyydra/callrelay/internal/core/domain"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the frame format in both directions:
// {"event": "offer", "data": {...}}.
type envelope struct {
	Event domain.EventType    `json:"event"`
	Data  jsoniter.RawMessage `json:"data,omitempty"`
}

type outgoing struct {
	Event domain.EventType `json:"event"`
	Data  any              `json:"data,omitempty"`
}

func encodeEvent(evt domain.Event) ([]byte, error) {
	return json.Marshal(outgoing{Event: evt.Type, Data: evt.Data})
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, domain.NewError(domain.ErrValidation, "Malformed message")
	}
	if env.Event == "" {
		return envelope{}, domain.NewError(domain.ErrValidation, "Missing event")
	}
	return env, nil
}

// decodeData reads the envelope body into v. A missing body decodes as an
// empty object so that field validation reports what is missing.
func decodeData(env envelope, v any) error {
	body := bytes.TrimSpace(env.Data)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewError(domain.ErrValidation, "Malformed %s payload", env.Event)
	}
	return nil
}

type userPayload struct {
	UserID domain.UserID `json:"userId"`
}

type callRequestPayload struct {
	CallID domain.CallID `json:"callId"`
	From   domain.UserID `json:"from"`
	To     domain.UserID `json:"to"`
}

func (p callRequestPayload) toDomain() domain.CallRequest {
	return domain.CallRequest{CallID: p.CallID, From: p.From, To: p.To}
}

type callResponsePayload struct {
	CallID   domain.CallID `json:"callId"`
	From     domain.UserID `json:"from"`
	To       domain.UserID `json:"to"`
	Accepted *bool         `json:"accepted"`
}

func (p callResponsePayload) toDomain() domain.CallResponse {
	return domain.CallResponse{CallID: p.CallID, From: p.From, To: p.To, Accepted: p.Accepted}
}

type joinCallPayload struct {
	CallID domain.CallID `json:"callId"`
	UserID domain.UserID `json:"userId"`
	Role   domain.Role   `json:"role"`
}

func (p joinCallPayload) toDomain() domain.JoinRequest {
	return domain.JoinRequest{CallID: p.CallID, UserID: p.UserID, Role: p.Role}
}

type signalPayload struct {
	CallID    domain.CallID       `json:"callId"`
	To        domain.UserID       `json:"to"`
	Offer     jsoniter.RawMessage `json:"offer"`
	Answer    jsoniter.RawMessage `json:"answer"`
	Candidate jsoniter.RawMessage `json:"candidate"`
}

func (p signalPayload) toDomain(kind domain.SignalKind) domain.SignalRequest {
	req := domain.SignalRequest{Kind: kind, CallID: p.CallID, To: p.To}
	switch kind {
	case domain.SignalOffer:
		req.Payload = []byte(p.Offer)
	case domain.SignalAnswer:
		req.Payload = []byte(p.Answer)
	case domain.SignalCandidate:
		req.Payload = []byte(p.Candidate)
	}
	return req
}

type annotationPayload struct {
	CallID   domain.CallID `json:"callId"`
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	X        *float64      `json:"x"`
	Y        *float64      `json:"y"`
	From     domain.UserID `json:"from"`
	ObjectID string        `json:"objectId"`
}

func (p annotationPayload) toDomain() domain.AnnotationRequest {
	return domain.AnnotationRequest{
		CallID:   p.CallID,
		ID:       p.ID,
		Text:     p.Text,
		X:        p.X,
		Y:        p.Y,
		From:     p.From,
		ObjectID: p.ObjectID,
	}
}

type endCallPayload struct {
	CallID domain.CallID `json:"callId"`
	To     domain.UserID `json:"to"`
}

func (p endCallPayload) toDomain() domain.EndCallRequest {
	return domain.EndCallRequest{CallID: p.CallID, To: p.To}
}
