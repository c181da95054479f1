package service

import (
	"github.com/Wyydra/callrelay/internal/core/domain"
	"github.com/Wyydra/callrelay/internal/core/port"
	"github.com/rs/zerolog/log"
)

// RelayService forwards offers, answers and ICE candidates between peers
// without looking inside them.
type RelayService struct {
	presence *PresenceRegistry
	gateway  port.RealTimeGateway
	metrics  port.Metrics
}

func NewRelayService(presence *PresenceRegistry, gateway port.RealTimeGateway, metrics port.Metrics) *RelayService {
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	return &RelayService{
		presence: presence,
		gateway:  gateway,
		metrics:  metrics,
	}
}

func (s *RelayService) Forward(from domain.UserID, req domain.SignalRequest) error {
	if !req.Kind.Valid() {
		return domain.NewError(domain.ErrValidation, "Unsupported signal %q", req.Kind)
	}
	if err := req.Validate(); err != nil {
		return err
	}
	target, ok := s.presence.Resolve(req.To)
	if !ok {
		return domain.UserNotFound(req.To)
	}

	l := log.With().
		Str("kind", string(req.Kind)).
		Str("call_id", req.CallID.String()).
		Str("from", from.String()).
		Str("to", req.To.String()).
		Logger()

	delivered := s.gateway.Send(target, domain.Event{
		Type: req.Kind.EventType(),
		Data: req.Notice(from),
	})
	if !delivered {
		l.Debug().Msg("Signal target has no live connection, dropped")
		return nil
	}
	s.metrics.SignalRelayed(string(req.Kind))

	l.Debug().Msg("Signal forwarded")
	return nil
}
