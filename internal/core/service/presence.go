package service

import (
	"sort"

	"github.com/Wyydra/callrelay/internal/core/domain"
	"github.com/Wyydra/callrelay/internal/core/port"
	"github.com/rs/zerolog/log"
)

// PresenceRegistry maps each online user to the one connection that
// currently speaks for them.
type PresenceRegistry struct {
	gateway port.RealTimeGateway
	metrics port.Metrics
	entries map[domain.UserID]domain.ConnectionID
}

func NewPresenceRegistry(gateway port.RealTimeGateway, metrics port.Metrics) *PresenceRegistry {
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &PresenceRegistry{
		gateway: gateway,
		metrics: metrics,
		entries: make(map[domain.UserID]domain.ConnectionID),
	}
}

// Register points user at conn, replacing any earlier connection, and tells
// everyone the user is online. The replaced connection is not notified.
func (r *PresenceRegistry) Register(user domain.UserID, conn domain.ConnectionID) {
	prev, had := r.entries[user]
	r.entries[user] = conn
	r.metrics.OnlineUsers(len(r.entries))

	l := log.With().Str("user_id", user.String()).Str("conn_id", conn.String()).Logger()
	if had && prev != conn {
		l.Info().Str("superseded_conn_id", prev.String()).Msg("User re-registered")
	} else {
		l.Info().Msg("User registered")
	}

	r.broadcast(user, domain.StatusOnline)
}

func (r *PresenceRegistry) Resolve(user domain.UserID) (domain.ConnectionID, bool) {
	conn, ok := r.entries[user]
	return conn, ok
}

func (r *PresenceRegistry) IsOnline(user domain.UserID) bool {
	_, ok := r.entries[user]
	return ok
}

// MarkOffline removes user only while the registry still maps it to conn.
func (r *PresenceRegistry) MarkOffline(user domain.UserID, conn domain.ConnectionID) bool {
	current, ok := r.entries[user]
	if !ok || current != conn {
		return false
	}
	r.remove(user)
	log.Info().Str("user_id", user.String()).Str("conn_id", conn.String()).Msg("User went offline")
	return true
}

// Logout removes user regardless of which connection it is mapped to.
func (r *PresenceRegistry) Logout(user domain.UserID) bool {
	if _, ok := r.entries[user]; !ok {
		return false
	}
	r.remove(user)
	log.Info().Str("user_id", user.String()).Msg("User logged out")
	return true
}

// Online returns the online users sorted by id.
func (r *PresenceRegistry) Online() []domain.UserID {
	out := make([]domain.UserID, 0, len(r.entries))
	for user := range r.entries {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *PresenceRegistry) Len() int {
	return len(r.entries)
}

func (r *PresenceRegistry) remove(user domain.UserID) {
	delete(r.entries, user)
	r.metrics.OnlineUsers(len(r.entries))
	r.broadcast(user, domain.StatusOffline)
}

func (r *PresenceRegistry) broadcast(user domain.UserID, status domain.PresenceStatus) {
	r.gateway.Broadcast(domain.Event{
		Type: domain.EventUserStatusChange,
		Data: domain.UserStatusChange{UserID: user, Status: status},
	})
}
