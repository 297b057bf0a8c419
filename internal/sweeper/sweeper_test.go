package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/repo"
)

func insertEscrow(t *testing.T, store *repo.Memory, id string, status escrow.Status, expiresAt time.Time) {
	t.Helper()
	now := time.Now()
	require.NoError(t, store.Insert(context.Background(), &escrow.Escrow{
		ID:              id,
		WalletID:        "wallet-1",
		MatchID:         "match-1",
		SelectedOutcome: "home",
		Odds:            2.0,
		AmountSats:      1_000,
		Status:          status,
		CreatedAt:       now,
		ExpiresAt:       expiresAt,
		UpdatedAt:       now,
	}))
}

func TestSweepOnce(t *testing.T) {
	store := repo.NewMemory()
	now := time.Now()

	insertEscrow(t, store, "escrow_vencido_1", escrow.StatusPending, now.Add(-time.Minute))
	insertEscrow(t, store, "escrow_vencido_2", escrow.StatusPending, now.Add(-time.Hour))
	insertEscrow(t, store, "escrow_vigente", escrow.StatusPending, now.Add(time.Hour))
	insertEscrow(t, store, "escrow_ativo", escrow.StatusActive, now.Add(-time.Minute))

	var sweptTotal int
	s := &Sweeper{
		Log:     zap.NewNop(),
		Store:   store,
		OnSwept: func(n int) { sweptTotal += n },
	}

	n, err := s.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, sweptTotal)

	ctx := context.Background()
	for _, id := range []string{"escrow_vencido_1", "escrow_vencido_2"} {
		e, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, escrow.StatusRefunded, e.Status)
	}

	// pending vigente e active não são tocados pela varredura
	e, err := store.Get(ctx, "escrow_vigente")
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusPending, e.Status)
	e, err = store.Get(ctx, "escrow_ativo")
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusActive, e.Status)

	// segunda passada não encontra nada
	n, err = s.SweepOnce(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunStopsOnContext(t *testing.T) {
	s := &Sweeper{
		Log:      zap.NewNop(),
		Store:    repo.NewMemory(),
		Interval: 5 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
