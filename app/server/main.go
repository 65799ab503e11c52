package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trackroom/internal/config"
	"trackroom/internal/history"
	"trackroom/internal/logging"
	"trackroom/internal/middleware"
	"trackroom/internal/room"
	"trackroom/internal/roomsvc"
	"trackroom/internal/socket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info", "json")
		fallback.Fatal().Err(err).Msg("config load failed")
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	var recorder history.Recorder = history.NopRecorder{}
	var writer *history.Writer
	if cfg.Redis.Enabled {
		store := history.NewRedisStore(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.LocationTTLSeconds)*time.Second,
		)
		store.StartCleanupLoop(10 * time.Second)
		writer = history.NewWriter(store, logger, history.WriterConfig{
			QueueSize: cfg.Redis.QueueSize,
			Workers:   cfg.Redis.Workers,
		})
		recorder = writer
	}

	registry := room.NewRegistry()
	validator := roomsvc.NewClient(cfg.RoomSvc.BaseURL, time.Duration(cfg.RoomSvc.TimeoutMS)*time.Millisecond)
	hub := socket.NewHub(logger, registry, validator, recorder, time.Duration(cfg.Socket.JoinTimeoutMS)*time.Millisecond)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Get("/ws", socket.WSHandler(hub, cfg.Socket, logger))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           middleware.Recovery(logger, r),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("websocket server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	if writer != nil {
		writer.Shutdown()
	}
	_ = server.Close()
}
