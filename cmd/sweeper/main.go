package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/config"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/events"
	kafkax "github.com/servexlb/wholesale-harmony-system-sub000/internal/kafka"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/postgres"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/redisx"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/subscription"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/sweeper"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for expired transitions
	pExpired := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicSubscriptionExpired, 1024)
	pExpired.Start(ctx)

	svc := &sweeper.Service{
		Subs:        &subscription.Repo{DB: db},
		Redis:       rdb,
		Producer:    pExpired,
		Log:         log,
		ServiceName: cfg.ServiceName + "-sweeper",
		Batch:       cfg.SweepBatch,
	}

	// Consumer keeps the derived-status cache warm
	group := getenv("SWEEPER_GROUP", "subscription-sweeper")
	workers := mustAtoi(os.Getenv("SWEEPER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group,
		[]string{events.TopicSubscriptionCreated, events.TopicSubscriptionRenewed}, workers, log)

	go func() {
		log.Info("sweeper consumer started", zap.String("group", group), zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleSubscriptionEvent); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	go svc.Run(ctx, cfg.SweepInterval)

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down sweeper...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pExpired.Close()
	pExpired.WaitClosed()
}
