package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLedger(t *testing.T) (*Ledger, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	return NewLedger(zap.NewNop(), repo), repo
}

func TestCreateWallet(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	w, err := ledger.CreateWallet(ctx, "satoshi")
	require.NoError(t, err)

	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "satoshi", w.Username)
	assert.Len(t, w.Adminkey, 32)
	assert.Len(t, w.Inkey, 32)
	assert.NotEqual(t, w.Adminkey, w.Inkey)
	assert.Zero(t, w.BalanceSats)

	// adminkey resolve sessão; inkey resolve saldo
	got, err := ledger.Session(ctx, w.Adminkey)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)

	bal, err := ledger.Balance(ctx, w.Inkey)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestSessionUnknownKey(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Session(context.Background(), "chave-inexistente")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestDebitAndCredit(t *testing.T) {
	ledger, repo := newTestLedger(t)
	ctx := context.Background()

	w, err := ledger.CreateWallet(ctx, "alice")
	require.NoError(t, err)
	_, err = ledger.Credit(ctx, w.ID, 50_000, "deposit")
	require.NoError(t, err)

	bal, err := ledger.Debit(ctx, w.ID, 10_000, "bet:escrow_1")
	require.NoError(t, err)
	assert.Equal(t, int64(40_000), bal)

	bal, err = ledger.Credit(ctx, w.ID, 25_000, "escrow-release:escrow_1")
	require.NoError(t, err)
	assert.Equal(t, int64(65_000), bal)

	// trilha de auditoria registra cada movimento com a referência
	entries := repo.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "DEBIT", entries[1].Operation)
	assert.Equal(t, "bet:escrow_1", entries[1].Ref)
	assert.Equal(t, "CREDIT", entries[2].Operation)
}

func TestDebitInsufficientFunds(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	w, err := ledger.CreateWallet(ctx, "bob")
	require.NoError(t, err)
	_, err = ledger.Credit(ctx, w.ID, 1_000, "deposit")
	require.NoError(t, err)

	_, err = ledger.Debit(ctx, w.ID, 2_000, "bet:escrow_x")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// rejeição não muta o saldo
	bal, err := ledger.Balance(ctx, w.Inkey)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), bal)
}

func TestAmountValidation(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	w, err := ledger.CreateWallet(ctx, "carol")
	require.NoError(t, err)

	_, err = ledger.Debit(ctx, w.ID, 0, "x")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ledger.Debit(ctx, w.ID, -10, "x")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ledger.Credit(ctx, w.ID, 0, "x")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDeposit(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	w, err := ledger.CreateWallet(ctx, "dave")
	require.NoError(t, err)

	bal, err := ledger.Deposit(ctx, w.Adminkey, 30_000)
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), bal)

	_, err = ledger.Deposit(ctx, "adminkey-errada", 100)
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	w, err := ledger.CreateWallet(ctx, "erin")
	require.NoError(t, err)
	_, err = ledger.Credit(ctx, w.ID, 10_000, "deposit")
	require.NoError(t, err)

	// 20 débitos de 1000 disputando um saldo de 10000: exatamente 10 passam
	var wg sync.WaitGroup
	var mu sync.Mutex
	okCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Debit(ctx, w.ID, 1_000, "bet"); err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, okCount)
	bal, err := ledger.Balance(ctx, w.Inkey)
	require.NoError(t, err)
	assert.Zero(t, bal)
}
