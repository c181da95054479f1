package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/Wyydra/callrelay/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/callrelay/internal/core/domain"
	"github.com/Wyydra/callrelay/internal/core/port"
	"github.com/Wyydra/callrelay/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Signaling *service.SignalingService
	Hub       *ws.Hub
	Directory port.UserDirectory
	Metrics   port.Metrics

	// MetricsHandler is mounted on /metrics when set.
	MetricsHandler http.Handler
	StaticDir      string
	AllowedOrigins []string
	Socket         SocketConfig
}

type Handler struct {
	Signaling *service.SignalingService
	Hub       *ws.Hub
	Directory port.UserDirectory

	metrics        port.Metrics
	metricsHandler http.Handler
	staticDir      string
	origins        []string
	socket         SocketConfig
	upgrader       websocket.Upgrader
	started        time.Time
}

func NewHandler(opts Options) *Handler {
	if opts.Metrics == nil {
		opts.Metrics = port.NopMetrics{}
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	h := &Handler{
		Signaling:      opts.Signaling,
		Hub:            opts.Hub,
		Directory:      opts.Directory,
		metrics:        opts.Metrics,
		metricsHandler: opts.MetricsHandler,
		staticDir:      opts.StaticDir,
		origins:        opts.AllowedOrigins,
		socket:         opts.Socket.withDefaults(),
		started:        time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Post("/login", h.Login)

	r.Route("/api", func(r chi.Router) {
		r.Get("/experts", h.ListExperts)
		r.Post("/create-call", h.CreateCall)
		r.Get("/calls", h.ListCalls)
		r.Get("/users/status", h.UsersStatus)
	})

	r.Get("/ws", h.ServeWS)

	if h.metricsHandler != nil {
		r.Handle("/metrics", h.metricsHandler)
	}
	if h.staticDir != "" {
		fs := http.FileServer(http.Dir(h.staticDir))
		r.Handle("/*", fs)
	}

	return r
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	log.Warn().Str("origin", origin).Msg("Rejected websocket origin")
	return false
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error writing response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		status = http.StatusBadRequest
	case domain.ErrUnauthorized:
		status = http.StatusUnauthorized
	case domain.ErrForbidden:
		status = http.StatusForbidden
	case domain.ErrNotFound:
		status = http.StatusNotFound
	case domain.ErrInvalidState:
		status = http.StatusConflict
	}
	if errors.Is(err, ws.ErrHubStopped) {
		status = http.StatusServiceUnavailable
		msg = "Server is shutting down"
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		msg = derr.Message
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, messageResponse{Message: msg})
}
