package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/callrelay/internal/adapter/driven/directory/memory"
	"github.com/Wyydra/callrelay/internal/adapter/driven/gateway/ws"
	prom "github.com/Wyydra/callrelay/internal/adapter/driven/metrics/prometheus"
	handler "github.com/Wyydra/callrelay/internal/adapter/driving/http"
	"github.com/Wyydra/callrelay/internal/config"
	"github.com/Wyydra/callrelay/internal/core/domain"
	"github.com/Wyydra/callrelay/internal/core/port"
	"github.com/Wyydra/callrelay/internal/core/service"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	config.InitLogging(cfg)
	l := log.Logger

	accounts := make([]memory.Account, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		accounts = append(accounts, memory.Account{
			Username: u.Username,
			Password: u.Password,
			Role:     domain.Role(u.Role),
		})
	}
	if len(accounts) == 0 {
		accounts = memory.DefaultAccounts
	}
	directory := memory.NewDirectory(accounts)

	var (
		metrics        port.Metrics = port.NopMetrics{}
		metricsHandler http.Handler
	)
	if cfg.Monitoring.Enabled {
		m := prom.New(prom.Options{Labels: cfg.Monitoring.Labels})
		metrics = m
		metricsHandler = m.Handler()
	}

	hub := ws.NewHub()
	signaling := service.NewSignalingService(service.Options{
		Gateway:     hub,
		Scheduler:   hub,
		Directory:   directory,
		Metrics:     metrics,
		GracePeriod: cfg.Presence.GracePeriod,
	})
	hub.OnDisconnect(signaling.Disconnect)

	h := handler.NewHandler(handler.Options{
		Signaling:      signaling,
		Hub:            hub,
		Directory:      directory,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		StaticDir:      cfg.HTTP.StaticDir,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Socket: handler.SocketConfig{
			MaxMessageBytes:   cfg.Signaling.MaxMessageBytes,
			MessagesPerSecond: cfg.Signaling.MessagesPerSecond,
			Burst:             cfg.Signaling.Burst,
			SendBuffer:        cfg.Signaling.SendBuffer,
			WriteTimeout:      cfg.Signaling.WriteTimeout,
			PongTimeout:       cfg.Signaling.PongTimeout,
			PingInterval:      cfg.Signaling.PingInterval,
		},
	})

	go hub.Run()

	r := h.NewRouter()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info().Str("addr", cfg.HTTP.Addr).Dur("grace_period", cfg.Presence.GracePeriod).Msg("Starting signaling server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	hub.Stop()
	l.Info().Msg("Server exited")
}
