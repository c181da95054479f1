package port

import (
	"github.com/Wyydra/callrelay/internal/core/domain"
)

// RealTimeGateway delivers events to live connections. Calls are made from
// the event loop only; delivery is fire-and-forget.
type RealTimeGateway interface {
	// Send delivers evt to one connection. It reports false when the
	// connection is unknown.
	Send(conn domain.ConnectionID, evt domain.Event) bool
	// Broadcast delivers evt to every connection.
	Broadcast(evt domain.Event)
	// Publish delivers evt to the call's group, skipping except. A zero
	// except reaches the whole group.
	Publish(call domain.CallID, evt domain.Event, except domain.ConnectionID)
	Subscribe(call domain.CallID, conn domain.ConnectionID)
	Unsubscribe(call domain.CallID, conn domain.ConnectionID)
	// CloseGroup forgets the call's group.
	CloseGroup(call domain.CallID)
}
