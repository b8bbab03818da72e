package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qrave1/InterviewRoom/internal/application/config"
	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/application/metric"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/memory"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/postgres"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/postgres/repository"
	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/handlers"
	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/server"
	"github.com/qrave1/InterviewRoom/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: level},
			),
		),
	)

	var (
		access        usecase.RoomAccess
		interviewRepo repository.InterviewRepository
	)

	switch cfg.RoomAccess {
	case config.RoomAccessInterview:
		dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			slog.Error("connect to postgres", slog.Any(constant.Error, err))
			os.Exit(1)
		}
		defer dbConn.Close()

		interviewRepo = repository.NewInterviewRepo(dbConn)
		access = usecase.NewInterviewRoomAccess(interviewRepo)
	default:
		slog.Warn("room access is open, any identity may join any room")

		access = usecase.NewOpenRoomAccess()
	}

	registry := memory.NewRoomRegistry(func(roomID string) {
		slog.Info("room closed", slog.String(constant.RoomID, roomID))
	})
	conns := memory.NewConnectionRepository()

	tokenUsecase := usecase.NewTokenUsecase(cfg.JWTSecret)
	presenceUsecase := usecase.NewPresenceUsecase(access, registry, conns)
	relayUsecase := usecase.NewRelayUsecase(registry, conns)
	sideChannelUsecase := usecase.NewSideChannelUsecase(registry, conns)
	notifyUsecase := usecase.NewNotifyUsecase(conns)

	iceHandler := handlers.NewIceHandler(cfg)
	roomHandler := handlers.NewRoomHandler(presenceUsecase, interviewRepo)
	notifyHandler := handlers.NewNotifyHandler(notifyUsecase)
	wsHandler := handlers.NewWebSocketHandler(cfg, presenceUsecase, relayUsecase, sideChannelUsecase, conns)

	echoSrv := server.New(cfg, tokenUsecase, iceHandler, roomHandler, notifyHandler, wsHandler)

	metricsSrv := metric.NewServer(func() metric.Stats {
		return metric.Stats{
			Rooms:       len(registry.Rooms(context.Background())),
			Connections: conns.Count(),
		}
	})

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	// Запускаем HTTP сервер
	go func() {
		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	// Запускаем сервер метрик
	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	slog.Info(
		"relay started",
		slog.String("port", cfg.Port),
		slog.String("metric_port", cfg.MetricPort),
		slog.String("room_access", cfg.RoomAccess),
	)

	// Ожидаем сигнал завершения или ошибку сервера
	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	case err := <-metricsSrvCh:
		slog.Error(
			"Metrics server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	}

	// Graceful shutdown
	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}
