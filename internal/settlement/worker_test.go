package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/repo"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/wallet"
	"github.com/satsbet/ln-escrow-core/pkg/contracts/events"
)

type settleFixture struct {
	worker  *Worker
	store   *repo.Memory
	ledger  *wallet.Ledger
	wallets *wallet.MemoryRepo
	settled []string
}

func newSettleFixture(t *testing.T) *settleFixture {
	t.Helper()
	log := zap.NewNop()
	store := repo.NewMemory()
	wallets := wallet.NewMemoryRepo()
	ledger := wallet.NewLedger(log, wallets)
	manager := escrow.NewManager(log, store, nil, ledger)

	f := &settleFixture{store: store, ledger: ledger, wallets: wallets}
	f.worker = &Worker{
		Log:       log,
		Manager:   manager,
		Store:     store,
		OnSettled: func(status string) { f.settled = append(f.settled, status) },
	}
	return f
}

// activeEscrow insere um escrow já fundado, com carteira própria zerada.
func (f *settleFixture) activeEscrow(t *testing.T, matchID, selection string, amount int64, odds float64) *escrow.Escrow {
	t.Helper()
	ctx := context.Background()
	w, err := f.ledger.CreateWallet(ctx, "apostador-"+selection)
	require.NoError(t, err)

	now := time.Now()
	e := &escrow.Escrow{
		ID:              "escrow_" + uuid.NewString(),
		WalletID:        w.ID,
		MatchID:         matchID,
		Market:          "match_winner",
		SelectedOutcome: selection,
		Odds:            odds,
		AmountSats:      amount,
		Status:          escrow.StatusActive,
		CreatedAt:       now,
		ExpiresAt:       now.Add(10 * time.Minute),
		UpdatedAt:       now,
	}
	require.NoError(t, f.store.Insert(ctx, e))
	return e
}

func (f *settleFixture) balanceOf(t *testing.T, walletID string) int64 {
	t.Helper()
	w, err := f.wallets.GetByID(context.Background(), walletID)
	require.NoError(t, err)
	return w.BalanceSats
}

func TestHandleSettlesWinnersAndLosers(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	winner := f.activeEscrow(t, "match-1", "home", 10_000, 2.5)
	loser := f.activeEscrow(t, "match-1", "away", 8_000, 4.2)
	other := f.activeEscrow(t, "match-2", "home", 1_000, 1.5)

	err := f.worker.Handle(ctx, events.MatchSettled{MatchID: "match-1", WinningOutcome: "home"})
	require.NoError(t, err)

	got, err := f.store.Get(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusCompleted, got.Status)
	assert.NotEmpty(t, got.Txid)

	got, err = f.store.Get(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusRefunded, got.Status)

	// partida alheia não é tocada
	got, err = f.store.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusActive, got.Status)

	assert.ElementsMatch(t, []string{"completed", "refunded"}, f.settled)
}

func TestHandleCreditsPayouts(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	winner := f.activeEscrow(t, "match-1", "home", 10_000, 2.5)
	loser := f.activeEscrow(t, "match-1", "away", 8_000, 4.2)

	// desfecho chega em caixa alta; comparação é case-insensitive
	err := f.worker.Handle(ctx, events.MatchSettled{MatchID: "match-1", WinningOutcome: "HOME"})
	require.NoError(t, err)

	// vencedor recebe round(amount*odds); perdedor recebe o stake de volta
	assert.Equal(t, int64(25_000), f.balanceOf(t, winner.WalletID))
	assert.Equal(t, int64(8_000), f.balanceOf(t, loser.WalletID))
}

func TestHandleCancelledMatchRefundsAll(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	a := f.activeEscrow(t, "match-1", "home", 10_000, 2.5)
	b := f.activeEscrow(t, "match-1", "away", 8_000, 4.2)

	err := f.worker.Handle(ctx, events.MatchSettled{MatchID: "match-1", WinningOutcome: OutcomeCancelled})
	require.NoError(t, err)

	for _, e := range []*escrow.Escrow{a, b} {
		got, err := f.store.Get(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, escrow.StatusRefunded, got.Status)
		assert.Equal(t, e.AmountSats, f.balanceOf(t, e.WalletID))
	}
}

func TestHandleRejectsIncompleteEvent(t *testing.T) {
	f := newSettleFixture(t)
	ctx := context.Background()

	err := f.worker.Handle(ctx, events.MatchSettled{MatchID: "", WinningOutcome: "home"})
	assert.Error(t, err)

	err = f.worker.Handle(ctx, events.MatchSettled{MatchID: "match-1", WinningOutcome: "  "})
	assert.Error(t, err)
}

func TestHandleNoActiveEscrows(t *testing.T) {
	f := newSettleFixture(t)

	err := f.worker.Handle(context.Background(), events.MatchSettled{MatchID: "match-vazio", WinningOutcome: "home"})
	require.NoError(t, err)
	assert.Empty(t, f.settled)
}
