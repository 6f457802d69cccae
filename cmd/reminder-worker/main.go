package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/healthycare/scheduling-service/internal/config"
	"github.com/healthycare/scheduling-service/internal/db"
	"github.com/healthycare/scheduling-service/internal/logger"
	"github.com/healthycare/scheduling-service/internal/notify"
	redisclient "github.com/healthycare/scheduling-service/internal/redis"
	"github.com/healthycare/scheduling-service/internal/schedule"
)

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

	zlog.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Int("lead_days", cfg.ReminderLeadDays))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

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

	if cfg.AMQPURL == "" {
		zlog.Fatal("AMQP_URL is required for the reminder worker")
	}
	amqpConn, err := amqp091.Dial(cfg.AMQPURL)
	if err != nil {
		zlog.Fatal("rabbitmq connection error", zap.Error(err))
	}
	defer func() { _ = amqpConn.Close() }()

	notifier, err := notify.NewAMQPNotifier(amqpConn, cfg.NotifyQueue)
	if err != nil {
		zlog.Fatal("rabbitmq notifier error", zap.Error(err))
	}
	defer func() { _ = notifier.Close() }()
	zlog.Info("connected to RabbitMQ", zap.String("queue", cfg.NotifyQueue))

	repo := schedule.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	svc := schedule.NewService(repo, locker, notifier, cfg, zlog)

	// Run once at startup
	runOnce(rootCtx, svc, zlog)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			zlog.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, zlog)
		}
	}
}

func runOnce(ctx context.Context, svc *schedule.Service, zlog *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.SendReminders(runCtx); err != nil {
		zlog.Error("reminder run error", zap.Error(err))
		return
	}
	zlog.Info("reminder run complete", zap.Duration("took", time.Since(start)))
}
