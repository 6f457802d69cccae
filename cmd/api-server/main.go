package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/healthycare/scheduling-service/internal/api"
	"github.com/healthycare/scheduling-service/internal/config"
	"github.com/healthycare/scheduling-service/internal/db"
	"github.com/healthycare/scheduling-service/internal/logger"
	"github.com/healthycare/scheduling-service/internal/notify"
	redisclient "github.com/healthycare/scheduling-service/internal/redis"
	"github.com/healthycare/scheduling-service/internal/schedule"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		zlog.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zlog.Warn("error closing redis", zap.Error(err))
		}
	}()
	zlog.Info("connected to Redis")

	// Connect RabbitMQ if configured, otherwise swallow events
	var notifier notify.Notifier = notify.Noop{}
	var amqpConn *amqp091.Connection
	if cfg.AMQPURL != "" {
		amqpConn, err = amqp091.Dial(cfg.AMQPURL)
		if err != nil {
			zlog.Fatal("rabbitmq connection error", zap.Error(err))
		}
		defer func() { _ = amqpConn.Close() }()

		amqpNotifier, err := notify.NewAMQPNotifier(amqpConn, cfg.NotifyQueue)
		if err != nil {
			zlog.Fatal("rabbitmq notifier error", zap.Error(err))
		}
		defer func() { _ = amqpNotifier.Close() }()
		notifier = amqpNotifier
		zlog.Info("connected to RabbitMQ", zap.String("queue", cfg.NotifyQueue))
	} else {
		zlog.Warn("AMQP_URL not set, appointment events will not be published")
	}

	repo := schedule.NewCachedRepository(
		schedule.NewPgRepository(pgPool),
		cfg.WorkingHoursCacheSize,
		cfg.WorkingHoursCacheTTL,
	)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	svc := schedule.NewService(repo, locker, notifier, cfg, zlog)

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		PgPool:  pgPool,
		Redis:   rdb,
		AMQP:    amqpConn,
		Env:     cfg.Env,
		Version: version,
		Logger:  zlog,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		zlog.Fatal("http server error", zap.Error(err))
	case <-rootCtx.Done():
	}

	zlog.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
