package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
	eshttp "github.com/satsbet/ln-escrow-core/internal/escrow-service/http"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/invoice"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/odds"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/orchestrator"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/producer"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/repo"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/wallet"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/ws"
	"github.com/satsbet/ln-escrow-core/internal/shared/cache"
	"github.com/satsbet/ln-escrow-core/internal/shared/config"
	"github.com/satsbet/ln-escrow-core/internal/shared/db"
	sharedkafka "github.com/satsbet/ln-escrow-core/internal/shared/kafka"
	"github.com/satsbet/ln-escrow-core/internal/shared/logger"
	"github.com/satsbet/ln-escrow-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("escrow-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("env", cfg.Env))

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis (invoices, cache de odds, pub/sub do feed)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers
	betPlacedWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer betPlacedWriter.Close()
	matchSettledWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchSettled)
	defer matchSettledWriter.Close()

	// deps do domínio
	escrowStore := repo.NewPostgres(pg)
	walletRepo := wallet.NewPostgres(pg)
	ledger := wallet.NewLedger(log, walletRepo)
	issuer := invoice.NewIssuer(rdb)
	manager := escrow.NewManager(log, escrowStore, issuer, ledger)
	checker := odds.NewChecker(rdb)
	publ := producer.NewKafkaPublisher(betPlacedWriter, matchSettledWriter)

	orch := orchestrator.New(log, ledger, manager, issuer, checker, publ, orchestrator.Options{
		BetTTL:         time.Duration(cfg.BetTTLSeconds) * time.Second,
		InvoiceTTL:     time.Duration(cfg.InvoiceTTLSeconds) * time.Second,
		PaymentTimeout: time.Duration(cfg.PaymentTimeoutSeconds) * time.Second,
		AutoSettle:     cfg.AutoSettlePayments,
	})

	// feed de odds via WebSocket, alimentado pelo Redis Pub/Sub
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(context.Background(), log, rdb, cfg.RedisPubSubChannel, hub)

	api := eshttp.NewServer(log, ledger, manager, orch, issuer, publ, hub.HandleWS)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	// /metrics e /healthz em porta separada
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("escrow-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
