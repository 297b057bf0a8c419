package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/invoice"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/odds"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/orchestrator"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/repo"
	"github.com/satsbet/ln-escrow-core/internal/escrow-service/wallet"
	"github.com/satsbet/ln-escrow-core/pkg/contracts/events"
)

type capturedEvents struct {
	placed []events.BetPlaced
}

func (c *capturedEvents) PublishBetPlaced(_ context.Context, e events.BetPlaced) error {
	c.placed = append(c.placed, e)
	return nil
}

type betFixture struct {
	orch    *orchestrator.Orchestrator
	ledger  *wallet.Ledger
	manager *escrow.Manager
	store   *repo.Memory
	mr      *miniredis.Miniredis
	events  *capturedEvents
	wallet  *wallet.Wallet
}

// newBetFixture monta o fluxo completo em memória com a carteira já creditada.
func newBetFixture(t *testing.T, balance int64, opts orchestrator.Options) *betFixture {
	t.Helper()
	log := zap.NewNop()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := repo.NewMemory()
	ledger := wallet.NewLedger(log, wallet.NewMemoryRepo())
	issuer := invoice.NewIssuer(rdb)
	manager := escrow.NewManager(log, store, issuer, ledger)
	evs := &capturedEvents{}

	ctx := context.Background()
	w, err := ledger.CreateWallet(ctx, "tester")
	require.NoError(t, err)
	if balance > 0 {
		_, err = ledger.Credit(ctx, w.ID, balance, "deposit")
		require.NoError(t, err)
	}

	return &betFixture{
		orch:    orchestrator.New(log, ledger, manager, issuer, odds.NewChecker(rdb), evs, opts),
		ledger:  ledger,
		manager: manager,
		store:   store,
		mr:      mr,
		events:  evs,
		wallet:  w,
	}
}

func (f *betFixture) params() orchestrator.PlaceBetParams {
	return orchestrator.PlaceBetParams{
		Adminkey:  f.wallet.Adminkey,
		Inkey:     f.wallet.Inkey,
		MatchID:   "match-1",
		Market:    odds.MarketMatchWinner,
		Selection: "home",
		Odds:      2.5,
		Amount:    10_000,
	}
}

func TestPlaceBetHappyPath(t *testing.T) {
	f := newBetFixture(t, 50_000, orchestrator.Options{AutoSettle: true})
	ctx := context.Background()

	res, err := f.orch.PlaceBet(ctx, f.params())
	require.NoError(t, err)

	assert.NotEmpty(t, res.EscrowID)
	assert.NotEmpty(t, res.EscrowAddress)
	assert.NotEmpty(t, res.PaymentRequest)
	assert.Equal(t, int64(25_000), res.PotentialWin)
	assert.Equal(t, int64(40_000), res.NewBalance)

	e, err := f.manager.Get(ctx, res.EscrowID)
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusActive, e.Status)
	assert.Equal(t, 2.5, e.Odds)

	// evento bet_placed publicado com o potencial de ganho derivado
	require.Len(t, f.events.placed, 1)
	assert.Equal(t, res.EscrowID, f.events.placed[0].EscrowID)
	assert.Equal(t, int64(25_000), f.events.placed[0].PotentialWin)

	// vitória: escrow liberado credita o potentialWin (40000 + 25000)
	_, err = f.manager.Release(ctx, res.EscrowID)
	require.NoError(t, err)
	bal, err := f.ledger.Balance(ctx, f.wallet.Inkey)
	require.NoError(t, err)
	assert.Equal(t, int64(65_000), bal)
}

func TestPlaceBetAuthenticationRequired(t *testing.T) {
	f := newBetFixture(t, 50_000, orchestrator.Options{AutoSettle: true})

	p := f.params()
	p.Adminkey = "adminkey-que-nao-existe"
	_, err := f.orch.PlaceBet(context.Background(), p)
	assert.ErrorIs(t, err, orchestrator.ErrAuthenticationRequired)
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	f := newBetFixture(t, 5_000, orchestrator.Options{AutoSettle: true})
	ctx := context.Background()

	_, err := f.orch.PlaceBet(ctx, f.params())
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)

	// rejeição antes do escrow: nada criado, saldo intacto
	list, err := f.manager.ListByWallet(ctx, f.wallet.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	bal, err := f.ledger.Balance(ctx, f.wallet.Inkey)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), bal)
}

func TestPlaceBetUnknownSelection(t *testing.T) {
	f := newBetFixture(t, 50_000, orchestrator.Options{AutoSettle: true})

	p := f.params()
	p.Selection = "banana"
	_, err := f.orch.PlaceBet(context.Background(), p)
	assert.ErrorIs(t, err, odds.ErrUnknownSelection)
}

func TestPlaceBetOddsChanged(t *testing.T) {
	f := newBetFixture(t, 50_000, orchestrator.Options{AutoSettle: true})
	ctx := context.Background()

	// odds correntes divergem da vista pelo cliente (2.5)
	f.mr.Set("odds:match-1:match_winner:home", "1.85")
	f.mr.Set("odds:match-1:match_winner:draw", "3.40")
	f.mr.Set("odds:match-1:match_winner:away", "4.20")

	_, err := f.orch.PlaceBet(ctx, f.params())
	assert.ErrorIs(t, err, orchestrator.ErrOddsChanged)

	list, err := f.manager.ListByWallet(ctx, f.wallet.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPlaceBetUsesCachedOdds(t *testing.T) {
	f := newBetFixture(t, 50_000, orchestrator.Options{AutoSettle: true})
	ctx := context.Background()

	f.mr.Set("odds:match-1:match_winner:home", "2.50")
	f.mr.Set("odds:match-1:match_winner:draw", "3.40")
	f.mr.Set("odds:match-1:match_winner:away", "4.20")

	res, err := f.orch.PlaceBet(ctx, f.params())
	require.NoError(t, err)

	e, err := f.manager.Get(ctx, res.EscrowID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, e.Odds)
}

func TestPlaceBetPaymentTimeout(t *testing.T) {
	f := newBetFixture(t, 50_000, orchestrator.Options{
		AutoSettle:     false,
		PaymentTimeout: 60 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
	})
	ctx := context.Background()

	_, err := f.orch.PlaceBet(ctx, f.params())
	assert.ErrorIs(t, err, orchestrator.ErrPaymentTimeout)

	// rollback: o escrow criado volta pra refunded e o saldo não muda
	list, err := f.manager.ListByWallet(ctx, f.wallet.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, escrow.StatusRefunded, list[0].Status)

	bal, err := f.ledger.Balance(ctx, f.wallet.Inkey)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), bal)
}

func TestPlaceBetContextCancelled(t *testing.T) {
	f := newBetFixture(t, 50_000, orchestrator.Options{
		AutoSettle:     false,
		PaymentTimeout: 5 * time.Second,
		PollInterval:   10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.orch.PlaceBet(ctx, f.params())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// rollback roda em contexto próprio mesmo com o original abandonado
	list, err := f.manager.ListByWallet(context.Background(), f.wallet.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, escrow.StatusRefunded, list[0].Status)
}
