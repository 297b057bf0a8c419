package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/repo"
	"github.com/satsbet/ln-escrow-core/internal/shared/config"
	"github.com/satsbet/ln-escrow-core/internal/shared/db"
	sharedkafka "github.com/satsbet/ln-escrow-core/internal/shared/kafka"
	"github.com/satsbet/ln-escrow-core/internal/shared/logger"
	"github.com/satsbet/ln-escrow-core/internal/shared/metrics"
	"github.com/satsbet/ln-escrow-core/internal/sweeper"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("escrow-sweeper-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	settledWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEscrowSettled)
	defer settledWriter.Close()

	swept := prometheus.NewCounter(prometheus.CounterOpts{Name: "sweeper_escrows_expired_total", Help: "escrows pending estornados por expiração"})
	sweepErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "sweeper_errors_total", Help: "falhas na varredura"})
	prometheus.MustRegister(swept, sweepErrors)

	s := &sweeper.Sweeper{
		Log:      log,
		Store:    repo.NewPostgres(pg),
		Interval: time.Duration(cfg.SweepIntervalSeconds) * time.Second,
		Settled:  settledWriter,
		OnSwept:  func(n int) { swept.Add(float64(n)) },
		OnError:  func() { sweepErrors.Inc() },
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("escrow-sweeper-worker started", zap.Int("intervalSeconds", cfg.SweepIntervalSeconds))
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("sweeper", zap.Error(err))
	}
}
