package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/invoice"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/repo"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/wallet"
	"github.com/satsbet/ln-escrow-core/internal/settlement"
	"github.com/satsbet/ln-escrow-core/internal/shared/cache"
	"github.com/satsbet/ln-escrow-core/internal/shared/config"
	"github.com/satsbet/ln-escrow-core/internal/shared/db"
	sharedkafka "github.com/satsbet/ln-escrow-core/internal/shared/kafka"
	"github.com/satsbet/ln-escrow-core/internal/shared/logger"
	"github.com/satsbet/ln-escrow-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("settlement-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// consumer de match_settled + producers de escrow_settled e DLQ
	reader := sharedkafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchSettled, "settlement-worker")
	defer reader.Close()
	settledWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEscrowSettled)
	defer settledWriter.Close()
	dlqWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchSettledDLQ)
	defer dlqWriter.Close()

	// manager com ledger real: liquidação credita payout/estorno na carteira
	escrowStore := repo.NewPostgres(pg)
	ledger := wallet.NewLedger(log, wallet.NewPostgres(pg))
	issuer := invoice.NewIssuer(rdb)
	manager := escrow.NewManager(log, escrowStore, issuer, ledger)

	// Métricas Prometheus do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_messages_consumed_total", Help: "mensagens consumidas"})
	settledBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_escrows_settled_total", Help: "escrows liquidados por desfecho"}, []string{"status"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, settledBy, errorsBy)

	worker := &settlement.Worker{
		Log:        log,
		Reader:     reader,
		Manager:    manager,
		Store:      escrowStore,
		Settled:    settledWriter,
		DLQ:        dlqWriter,
		OnConsumed: func() { consumed.Inc() },
		OnSettled:  func(status string) { settledBy.WithLabelValues(status).Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("settlement-worker started", zap.String("consume", cfg.TopicMatchSettled))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("worker", zap.Error(err))
	}
}
