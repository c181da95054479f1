package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Wyydra/callrelay/internal/core/domain"
)

type countingMetrics struct {
	relayed map[string]int
}

func (m *countingMetrics) OnlineUsers(int)              {}
func (m *countingMetrics) ActiveCalls(int)              {}
func (m *countingMetrics) EventRejected(string, string) {}
func (m *countingMetrics) SignalRelayed(kind string) {
	m.relayed[kind]++
}

func TestRelayForwardsOpaquePayload(t *testing.T) {
	gw := newRecorder()
	m := &countingMetrics{relayed: map[string]int{}}
	p := NewPresenceRegistry(gw, nil)
	relay := NewRelayService(p, gw, m)
	target := domain.NewConnectionID()
	p.Register("expert1", target)

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	err := relay.Forward("tech1", domain.SignalRequest{Kind: domain.SignalOffer, CallID: "c1", To: "expert1", Payload: offer})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}

	got := gw.ofType(target, domain.EventOffer)
	if len(got) != 1 {
		t.Fatalf("expected one offer, got %d", len(got))
	}
	n := got[0].Data.(domain.SignalNotice)
	if string(n.Offer) != string(offer) || n.From != "tech1" || n.CallID != "c1" {
		t.Fatalf("unexpected notice %+v", n)
	}
	if m.relayed["offer"] != 1 {
		t.Fatalf("expected relayed counter, got %v", m.relayed)
	}
}

func TestRelayErrors(t *testing.T) {
	gw := newRecorder()
	p := NewPresenceRegistry(gw, nil)
	relay := NewRelayService(p, gw, nil)

	err := relay.Forward("tech1", domain.SignalRequest{Kind: domain.SignalAnswer, CallID: "c1", To: "ghost", Payload: json.RawMessage(`{}`)})
	if !errors.Is(err, domain.ErrNotFound) || err.Error() != "User ghost not found" {
		t.Fatalf("expected user not found, got %v", err)
	}

	err = relay.Forward("tech1", domain.SignalRequest{Kind: domain.SignalCandidate, CallID: "c1", To: "ghost"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = relay.Forward("tech1", domain.SignalRequest{Kind: "renegotiate", CallID: "c1", To: "ghost", Payload: json.RawMessage(`{}`)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
	if len(gw.sent) != 0 {
		t.Fatalf("nothing should be sent, got %d", len(gw.sent))
	}
}

func TestRelayToDeadConnectionIsNotCounted(t *testing.T) {
	gw := newRecorder()
	m := &countingMetrics{relayed: map[string]int{}}
	p := NewPresenceRegistry(gw, nil)
	relay := NewRelayService(p, gw, m)
	target := domain.NewConnectionID()
	p.Register("expert1", target)
	gw.dead[target] = true

	err := relay.Forward("tech1", domain.SignalRequest{Kind: domain.SignalOffer, CallID: "c1", To: "expert1", Payload: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if m.relayed["offer"] != 0 {
		t.Fatalf("undelivered signal should not be counted, got %v", m.relayed)
	}
}
