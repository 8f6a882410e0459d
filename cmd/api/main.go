package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/catalog"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/config"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/credential"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/events"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/fulfillment"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/httpx"
	kafkax "github.com/servexlb/wholesale-harmony-system-sub000/internal/kafka"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/postgres"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/redisx"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/reseller"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/subscription"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/wallet"
)

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

	// Kafka producers, one per topic
	pOrder := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderFulfilled, 1024)
	pOrder.Start(ctx)
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicSubscriptionCreated, 1024)
	pCreated.Start(ctx)
	pRenewed := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicSubscriptionRenewed, 1024)
	pRenewed.Start(ctx)

	// Repos & services
	ledger := &wallet.Ledger{DB: db}
	catalogRepo := &catalog.Repo{DB: db}
	pool := &credential.Pool{DB: db}
	subRepo := &subscription.Repo{DB: db}
	orderRepo := &fulfillment.Repo{DB: db}

	intake := &fulfillment.Intake{
		DB:            db,
		Orders:        orderRepo,
		Ledger:        ledger,
		Catalog:       catalogRepo,
		Pool:          pool,
		Subs:          subRepo,
		Redis:         rdb,
		OrderProducer: pOrder,
		SubProducer:   pCreated,
		ServiceName:   cfg.ServiceName,
	}
	lifecycle := &subscription.Manager{
		DB:          db,
		Repo:        subRepo,
		Ledger:      ledger,
		Catalog:     catalogRepo,
		Pool:        pool,
		Producer:    pRenewed,
		ServiceName: cfg.ServiceName,
	}
	resellerSvc := &reseller.Service{
		DB:       db,
		Accounts: ledger,
		Intake:   intake,
		Subs:     subRepo,
	}

	router := httpx.NewRouter()
	h := &httpx.Handler{
		Intake:    intake,
		Orders:    orderRepo,
		Lifecycle: lifecycle,
		Subs:      subRepo,
		Catalog:   catalogRepo,
		Pool:      pool,
		Wallet:    ledger,
		Reseller:  resellerSvc,
		Redis:     rdb,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pOrder.Close()
	pCreated.Close()
	pRenewed.Close()
	cancel()
	pOrder.WaitClosed()
	pCreated.WaitClosed()
	pRenewed.WaitClosed()
}
