package sweeper

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
	"github.com/satsbet/ln-escrow-core/internal/shared/kafka"
	"github.com/satsbet/ln-escrow-core/pkg/contracts/events"
)

// Sweeper varre periodicamente escrows pending vencidos e os estorna.
// É o backstop da checagem preguiçosa na leitura: aposta abandonada nunca
// sobrevive ao expiresAt. Fundos nunca foram capturados, então não há crédito.
type Sweeper struct {
	Log      *zap.Logger
	Store    escrow.Store
	Interval time.Duration
	Settled  *kafkago.Writer // opcional: eventos escrow_settled dos estornos
	OnSwept  func(n int)
	OnError  func()
}

// Run executa a varredura no intervalo configurado até o contexto encerrar.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if _, err := s.SweepOnce(ctx, time.Now()); err != nil {
				s.Log.Error("sweep expired escrows", zap.Error(err))
				if s.OnError != nil {
					s.OnError()
				}
			}
		}
	}
}

// SweepOnce executa uma única passada da varredura.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.Store.SweepExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	for i := range expired {
		e := &expired[i]
		s.Log.Info("escrow expired", zap.String("escrowId", e.ID), zap.String("matchId", e.MatchID))
		if s.Settled == nil {
			continue
		}
		ev := events.EscrowSettled{
			EscrowID: e.ID,
			WalletID: e.WalletID,
			MatchID:  e.MatchID,
			Status:   string(escrow.StatusRefunded),
			Ts:       now,
		}
		b, _ := json.Marshal(ev)
		if err := kafka.WriteJSON(ctx, s.Settled, e.ID, b); err != nil {
			s.Log.Warn("publish escrow_settled failed", zap.String("escrowId", e.ID), zap.Error(err))
		}
	}

	if s.OnSwept != nil {
		s.OnSwept(len(expired))
	}
	return len(expired), nil
}
