package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rifqiarief/cetak3d-backend/internal/config"
	"github.com/rifqiarief/cetak3d-backend/internal/gateway"
	"github.com/rifqiarief/cetak3d-backend/internal/httpx"
	kafkax "github.com/rifqiarief/cetak3d-backend/internal/kafka"
	"github.com/rifqiarief/cetak3d-backend/internal/orders"
	"github.com/rifqiarief/cetak3d-backend/internal/postgres"
	"github.com/rifqiarief/cetak3d-backend/internal/pricing"
	"github.com/rifqiarief/cetak3d-backend/internal/reconcile"
	"github.com/rifqiarief/cetak3d-backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// schema dulu, baru pool
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, logger)
	pSettled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentSettled, 1024, logger)
	pFailed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFailed, 1024, logger)
	pFlagged := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFlagged, 256, logger)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStatusChanged, 1024, logger)
	producers := []*kafkax.Producer{pCreated, pSettled, pFailed, pFlagged, pStatus}
	for _, p := range producers {
		p.Start(ctx)
	}

	// Gateway Midtrans
	if cfg.MidtransServerKey == "" {
		log.Fatal("MIDTRANS_SERVER_KEY wajib diisi")
	}
	gw := gateway.New(cfg.MidtransServerKey, cfg.MidtransEnv)

	// Repo, service, engine
	repo := &orders.Repo{DB: db}
	svc := &orders.Service{
		Store:       repo,
		Settings:    &pricing.SettingsRepo{DB: db},
		Gateway:     gw,
		PubCreated:  pCreated,
		PubStatus:   pStatus,
		ServiceName: cfg.ServiceName,
		Log:         logger,
	}
	engine := &reconcile.Engine{
		Store:       repo,
		Gateway:     gw,
		Locker:      reconcile.RedisLocker{RDB: rdb},
		PubSettled:  pSettled,
		PubFailed:   pFailed,
		PubFlagged:  pFlagged,
		RDB:         rdb,
		ServiceName: cfg.ServiceName,
		Log:         logger,
	}

	// HTTP
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Svc: svc, Engine: engine, JWTSecret: cfg.JWTSecret, Log: logger}
	oh.Register(router)
	ph := &httpx.PaymentHandler{Engine: engine, ServerKey: cfg.MidtransServerKey, Log: logger}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
}
