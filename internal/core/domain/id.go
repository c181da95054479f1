package domain

import (
	"github.com/google/uuid"
)

// UserID is the login name a client registers under.
type UserID string

func (id UserID) String() string {
	return string(id)
}

// CallID names a call session. Server-allocated ids are uuids, clients may
// also pick their own when joining directly.
type CallID string

func NewCallID() CallID {
	return CallID(uuid.New().String())
}

func (id CallID) String() string {
	return string(id)
}

// ConnectionID identifies one live websocket.
type ConnectionID uuid.UUID

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.New())
}

func (id ConnectionID) String() string {
	return uuid.UUID(id).String()
}

func (id ConnectionID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}
