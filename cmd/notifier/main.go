package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-retail-ledger/internal/config"
	"github.com/ariefcatur/go-retail-ledger/internal/domain"
	kafkax "github.com/ariefcatur/go-retail-ledger/internal/kafka"
	"github.com/ariefcatur/go-retail-ledger/internal/logx"
	"github.com/ariefcatur/go-retail-ledger/internal/notifier"
	"github.com/ariefcatur/go-retail-ledger/internal/notify"
	"github.com/ariefcatur/go-retail-ledger/internal/postgres"
	"github.com/ariefcatur/go-retail-ledger/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logx.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("service", cfg.ServiceName+"-notifier"))

	if err := run(cfg, log); err != nil {
		log.Error("notifier exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	switch {
	case cfg.PostgresDSN == "":
		return errors.New("notifier needs POSTGRES_DSN")
	case cfg.RedisAddr == "":
		return errors.New("notifier needs REDIS_ADDR")
	case len(cfg.KafkaBrokers) == 0:
		return errors.New("notifier needs KAFKA_BROKERS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}
	store := postgres.New(pool, log, postgres.WithMaxAttempts(cfg.TxMaxAttempts))

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	svc := &notifier.Service{
		Sink:  notify.New(store, log),
		Dedup: redisx.NewDedup(rdb, cfg.ServiceName+"-notifier"),
		Log:   log,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, domain.TopicThresholdCrossed, cfg.NotifierWorkers, log)
	log.Info("notifier consumer started",
		zap.String("group", cfg.NotifierGroup),
		zap.String("topic", domain.TopicThresholdCrossed),
		zap.Int("workers", cfg.NotifierWorkers),
	)
	if err := cons.Start(ctx, svc.HandleThresholdCrossed); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	log.Info("notifier consumer stopped")
	return nil
}
