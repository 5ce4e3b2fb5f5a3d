package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/user-auth-service/internal/config"
	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/queue"
)

// Worker consumes the task queue. It needs only the broker and Redis, not
// the database.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel).With("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn(ctx, "redis unavailable; task status will not be recorded")
	} else {
		defer rdb.Close()
	}

	status := queue.NewStatusStore(rdb, 24*time.Hour)
	publisher := queue.NewPublisher(cfg.RabbitURL, cfg.Tasks.Queue, cfg.Tasks.MaxRetries, status, logger)
	runner := queue.NewRunner(status, publisher, cfg.Tasks.RetryDelay, cfg.Tasks.Timeout, logger)
	queue.Register(runner, queue.LogMailer{Log: logger}, time.Second)

	consumer := queue.NewConsumer(cfg.RabbitURL, cfg.Tasks.Queue, cfg.WorkerPoolSize, runner, logger)
	logger.Info(ctx, "worker started", "queue", cfg.Tasks.Queue)
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error(ctx, "consumer stopped", "error", err)
		os.Exit(1)
	}
}
