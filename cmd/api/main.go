package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-retail-ledger/internal/catalog"
	"github.com/ariefcatur/go-retail-ledger/internal/config"
	"github.com/ariefcatur/go-retail-ledger/internal/events"
	"github.com/ariefcatur/go-retail-ledger/internal/httpx"
	kafkax "github.com/ariefcatur/go-retail-ledger/internal/kafka"
	"github.com/ariefcatur/go-retail-ledger/internal/ledger"
	"github.com/ariefcatur/go-retail-ledger/internal/logx"
	"github.com/ariefcatur/go-retail-ledger/internal/memstore"
	"github.com/ariefcatur/go-retail-ledger/internal/notify"
	"github.com/ariefcatur/go-retail-ledger/internal/postgres"
	"github.com/ariefcatur/go-retail-ledger/internal/purchasing"
	"github.com/ariefcatur/go-retail-ledger/internal/redisx"
	"github.com/ariefcatur/go-retail-ledger/internal/reports"
	"github.com/ariefcatur/go-retail-ledger/internal/sales"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// backend is everything the services need from storage.
type backend interface {
	catalog.Store
	ledger.Store
	purchasing.Store
	purchasing.ReceiveStore
	sales.Store
	notify.Store
	reports.Source
}

var (
	_ backend = (*memstore.Store)(nil)
	_ backend = (*postgres.Store)(nil)
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logx.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("service", cfg.ServiceName))

	if err := run(cfg, log); err != nil {
		log.Error("api exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Kafka producer
	var (
		pub  events.Publisher = events.Nop{}
		prod *kafkax.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start()
		pub = kafkax.NewPublisher(prod, cfg.ServiceName)
	}

	engine := notify.New(store, log)
	led := ledger.New(store, log)
	switch cfg.NotifyMode {
	case config.NotifyKafka:
		if prod == nil {
			return errors.New("NOTIFY_MODE=kafka requires KAFKA_BROKERS")
		}
		led.AddSink(kafkax.NewCrossingSink(pub))
	case config.NotifyInline:
		led.AddSink(engine)
	default:
		return fmt.Errorf("unknown NOTIFY_MODE %q", cfg.NotifyMode)
	}

	// Redis
	var idem httpx.Idempotency
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		idem = redisx.NewIdempotency(rdb)
	} else {
		log.Warn("REDIS_ADDR empty, Idempotency-Key header is ignored")
	}

	api := &httpx.API{
		Catalog: catalog.New(store, log),
		Ledger:  led,
		Orders:  purchasing.NewManager(store, log),
		Reconciler: purchasing.NewReconciler(purchasing.ReconcilerConfig{
			Store:  store,
			Ledger: led,
			Policy: purchasing.ReliabilityPolicy{
				ExpectedLeadTime:  cfg.ExpectedLeadTime,
				Weight:            cfg.ReliabilityWeight,
				LatePenaltyPerDay: cfg.LatePenaltyPerDay,
			},
			Notifier:  engine,
			Publisher: pub,
			Log:       log,
		}),
		Sales:     sales.New(store, led, pub, log),
		Notify:    engine,
		Reports:   reports.New(store, cfg.Location(), log),
		Idem:      idem,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	}
	router := httpx.NewRouter(log, cfg.CORSOrigins)
	api.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("notify_mode", cfg.NotifyMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	err = g.Wait()

	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
	return err
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (backend, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Warn("POSTGRES_DSN empty, using in-memory store")
		return memstore.New(memstore.WithInitialReliability(cfg.InitialReliability)), func() {}, nil
	}
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	store := postgres.New(pool, log,
		postgres.WithMaxAttempts(cfg.TxMaxAttempts),
		postgres.WithInitialReliability(cfg.InitialReliability),
	)
	return store, pool.Close, nil
}
