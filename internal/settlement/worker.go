package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
	"github.com/satsbet/ln-escrow-core/internal/shared/kafka"
	"github.com/satsbet/ln-escrow-core/pkg/contracts/events"
)

// Rótulo de partida cancelada no evento match_settled.
const OutcomeCancelled = "cancelled"

// Worker consome eventos match_settled e liquida os escrows ativos da partida:
// vencedores são liberados (crédito do potentialWin); os demais estornados
// conforme a convenção de devolução ao perdedor. Partida cancelada estorna todos.
type Worker struct {
	Log        *zap.Logger
	Reader     *kafkago.Reader
	Manager    *escrow.Manager
	Store      escrow.Store
	Settled    *kafkago.Writer // opcional: eventos escrow_settled
	DLQ        *kafkago.Writer // opcional: mensagens indecifráveis
	OnConsumed func()
	OnSettled  func(status string) // métricas por desfecho
	OnError    func(stage string)  // métricas por fase
}

// Run inicia o loop principal de consumo.
func (w *Worker) Run(ctx context.Context) error {
	for {
		m, err := w.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.Log.Warn("kafka read failed", zap.Error(err))
			w.errMetric("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if w.OnConsumed != nil {
			w.OnConsumed()
		}

		var ev events.MatchSettled
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			w.Log.Warn("invalid match_settled message", zap.Error(err))
			w.errMetric("decode")
			if w.DLQ != nil {
				_ = kafka.WriteJSON(ctx, w.DLQ, string(m.Key), m.Value)
			}
			continue
		}

		if err := w.Handle(ctx, ev); err != nil {
			w.Log.Error("settle match", zap.String("matchId", ev.MatchID), zap.Error(err))
			w.errMetric("settle")
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// Handle liquida todos os escrows ativos da partida do evento.
func (w *Worker) Handle(ctx context.Context, ev events.MatchSettled) error {
	outcome := strings.ToLower(strings.TrimSpace(ev.WinningOutcome))
	if ev.MatchID == "" || outcome == "" {
		return fmt.Errorf("match_settled missing matchId or outcome")
	}

	escrows, err := w.Store.ListActiveByMatch(ctx, ev.MatchID)
	if err != nil {
		return err
	}
	if len(escrows) == 0 {
		w.Log.Info("no active escrows for match", zap.String("matchId", ev.MatchID))
		return nil
	}

	for i := range escrows {
		e := &escrows[i]
		var settled *escrow.Escrow
		var payout int64

		switch {
		case outcome == OutcomeCancelled:
			settled, err = w.Manager.Refund(ctx, e.ID)
			payout = e.AmountSats
		case strings.EqualFold(e.SelectedOutcome, outcome):
			settled, err = w.Manager.Release(ctx, e.ID)
			payout = e.PotentialWin()
		default:
			settled, err = w.Manager.Refund(ctx, e.ID)
			payout = e.AmountSats
		}
		if err != nil {
			// segue pros demais; o escrow problemático fica active pra reprocesso
			w.Log.Error("settle escrow", zap.String("escrowId", e.ID), zap.Error(err))
			w.errMetric("escrow")
			continue
		}
		if w.OnSettled != nil {
			w.OnSettled(string(settled.Status))
		}

		if w.Settled != nil {
			out := events.EscrowSettled{
				EscrowID:   settled.ID,
				WalletID:   settled.WalletID,
				MatchID:    settled.MatchID,
				Status:     string(settled.Status),
				PayoutSats: payout,
				Txid:       settled.Txid,
				Ts:         time.Now(),
			}
			b, _ := json.Marshal(out)
			if err := kafka.WriteJSON(ctx, w.Settled, settled.ID, b); err != nil {
				w.Log.Warn("publish escrow_settled failed", zap.String("escrowId", settled.ID), zap.Error(err))
				w.errMetric("publish")
			}
		}
	}

	w.Log.Info("match settled",
		zap.String("matchId", ev.MatchID),
		zap.String("outcome", outcome),
		zap.Int("escrows", len(escrows)),
	)
	return nil
}

func (w *Worker) errMetric(stage string) {
	if w.OnError != nil {
		w.OnError(stage)
	}
}
