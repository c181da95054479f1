package http

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Wyydra/callrelay/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	errClientClosed   = errors.New("client closed")
	errSendBufferFull = errors.New("send buffer full")
)

type SocketConfig struct {
	MaxMessageBytes   int64
	MessagesPerSecond float64
	Burst             int
	SendBuffer        int
	WriteTimeout      time.Duration
	PongTimeout       time.Duration
	PingInterval      time.Duration
}

func (c SocketConfig) withDefaults() SocketConfig {
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 * 1024
	}
	if c.MessagesPerSecond <= 0 {
		c.MessagesPerSecond = 50
	}
	if c.Burst <= 0 {
		c.Burst = 100
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongTimeout {
		c.PingInterval = c.PongTimeout * 9 / 10
	}
	return c
}

// WSClient is a websocket connection. Outbound events are queued and
// written by writePump so Send never blocks the hub.
type WSClient struct {
	id   domain.ConnectionID
	conn *websocket.Conn
	cfg  SocketConfig

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSClient(conn *websocket.Conn, cfg SocketConfig) *WSClient {
	return &WSClient{
		id:     domain.NewConnectionID(),
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *WSClient) ID() domain.ConnectionID {
	return c.id
}

func (c *WSClient) Send(evt domain.Event) error {
	data, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return errClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *WSClient) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteTimeout))
			return
		}
	}
}

// HTTP handler
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := newWSClient(conn, h.socket)

	l := log.With().Str("conn_id", client.id.String()).Logger()
	l.Info().Msg("New client connected")

	h.Hub.Register(client)
	go client.writePump()

	defer func() {
		l.Info().Msg("Client disconnected")
		h.Hub.Unregister(client)
		client.Close()
	}()

	conn.SetReadLimit(h.socket.MaxMessageBytes)
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(h.socket.PongTimeout))
	}
	_ = extend()
	conn.SetPongHandler(func(string) error { return extend() })

	limiter := rate.NewLimiter(rate.Limit(h.socket.MessagesPerSecond), h.socket.Burst)

	// listening for browser
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			break
		}
		_ = extend()

		if !limiter.Allow() {
			h.reject(client, "", domain.NewError(domain.ErrValidation, "Rate limit exceeded"), "rate_limited")
			continue
		}
		if msgType != websocket.TextMessage {
			h.reject(client, "", domain.NewError(domain.ErrValidation, "Expected text message"), "")
			continue
		}

		env, err := decodeEnvelope(data)
		if err != nil {
			h.reject(client, "", err, "")
			continue
		}

		if err := h.Hub.Do(r.Context(), func() { h.dispatch(client, env, l) }); err != nil {
			l.Warn().Err(err).Msg("Hub unavailable, dropping connection")
			break
		}
	}
}

// dispatch runs one inbound event on the hub loop.
func (h *Handler) dispatch(c *WSClient, env envelope, l zerolog.Logger) {
	conn := c.ID()
	sig := h.Signaling

	var err error
	switch env.Event {
	case domain.EventRegister, domain.EventReconnectAfterCall:
		var p userPayload
		if err = decodeData(env, &p); err == nil {
			err = sig.Register(conn, p.UserID)
		}

	case domain.EventLogout:
		var p userPayload
		if err = decodeData(env, &p); err == nil {
			err = sig.Logout(p.UserID)
		}

	case domain.EventCallRequest:
		var p callRequestPayload
		if err = decodeData(env, &p); err == nil {
			err = sig.Calls.RequestCall(p.toDomain())
		}

	case domain.EventCallResponse:
		var p callResponsePayload
		if err = decodeData(env, &p); err == nil {
			err = sig.Calls.RespondToCall(conn, p.toDomain())
		}

	case domain.EventJoinCall:
		var p joinCallPayload
		if err = decodeData(env, &p); err == nil {
			err = sig.JoinCall(conn, p.toDomain())
		}

	case domain.EventOffer, domain.EventAnswer, domain.EventICECandidate:
		var p signalPayload
		if err = decodeData(env, &p); err == nil {
			err = sig.Forward(conn, p.toDomain(domain.SignalKind(env.Event)))
		}

	case domain.EventAnnotation:
		var p annotationPayload
		if err = decodeData(env, &p); err == nil {
			err = sig.Calls.Annotate(conn, p.toDomain())
		}

	case domain.EventEndCall:
		var p endCallPayload
		if err = decodeData(env, &p); err == nil {
			err = sig.EndCall(conn, p.toDomain())
		}

	case domain.EventPing:
		h.Hub.Send(conn, domain.Event{Type: domain.EventPong})

	default:
		err = domain.NewError(domain.ErrValidation, "Unknown event %q", env.Event)
	}

	if err != nil {
		l.Debug().Err(err).Str("event", string(env.Event)).Msg("Event rejected")
		h.reject(c, env.Event, err, "")
	}
}

// reject answers the originating client with an error event. It is safe
// off the hub loop.
func (h *Handler) reject(c *WSClient, event domain.EventType, err error, reason string) {
	if reason == "" {
		reason = reasonOf(err)
	}
	h.metrics.EventRejected(string(event), reason)
	_ = c.Send(domain.NewErrorEvent(err))
}

func reasonOf(err error) string {
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		return "validation"
	case domain.ErrNotFound:
		return "not_found"
	case domain.ErrForbidden:
		return "forbidden"
	case domain.ErrInvalidState:
		return "invalid_state"
	case domain.ErrUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}
