package ws

import "github.com/Wyydra/callrelay/internal/core/domain"

// Client is one live connection as seen by the Hub. Send must not block.
type Client interface {
	ID() domain.ConnectionID
	Send(evt domain.Event) error
	Close() error
}
