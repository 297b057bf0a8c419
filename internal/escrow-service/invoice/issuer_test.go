package invoice

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) (*Issuer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewIssuer(rdb), mr
}

func TestCreateInvoice(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	inv, err := issuer.Create(ctx, CreateParams{
		AmountSats:  10_000,
		Memo:        "bet match-1 home",
		ExpiresIn:   600,
		ExternalRef: "escrow_abc",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(inv.PaymentRequest, "lnbc10000"))
	assert.Len(t, inv.PaymentHash, 64)
	assert.Equal(t, int64(10_000), inv.AmountSats)
	assert.Equal(t, "escrow_abc", inv.ExternalRef)
	assert.False(t, inv.Settled)
	assert.Equal(t, inv.CreatedAt.Add(600*time.Second), inv.ExpiresAt)

	got, err := issuer.Lookup(ctx, inv.PaymentHash)
	require.NoError(t, err)
	assert.Equal(t, inv.PaymentHash, got.PaymentHash)
}

func TestCreateInvoiceValidation(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	_, err := issuer.Create(ctx, CreateParams{AmountSats: 0, ExpiresIn: 600})
	assert.ErrorIs(t, err, ErrInvalidInvoice)

	_, err = issuer.Create(ctx, CreateParams{AmountSats: 1000, ExpiresIn: 0})
	assert.ErrorIs(t, err, ErrInvalidInvoice)
}

func TestCheckPaymentUnknownHash(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	// inexistente responde não-pago, sem erro (consulta idempotente)
	settled, err := issuer.CheckPayment(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.False(t, settled)
}

func TestMarkSettledOnce(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	inv, err := issuer.Create(ctx, CreateParams{AmountSats: 5_000, ExpiresIn: 600})
	require.NoError(t, err)

	settled, err := issuer.CheckPayment(ctx, inv.PaymentHash)
	require.NoError(t, err)
	assert.False(t, settled)

	paid, err := issuer.MarkSettled(ctx, inv.PaymentHash)
	require.NoError(t, err)
	assert.True(t, paid.Settled)
	assert.False(t, paid.SettledAt.IsZero())

	settled, err = issuer.CheckPayment(ctx, inv.PaymentHash)
	require.NoError(t, err)
	assert.True(t, settled)

	// cada invoice é consumida exatamente uma vez
	_, err = issuer.MarkSettled(ctx, inv.PaymentHash)
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestInvoiceExpiry(t *testing.T) {
	issuer, mr := newTestIssuer(t)
	ctx := context.Background()

	inv, err := issuer.Create(ctx, CreateParams{AmountSats: 5_000, ExpiresIn: 60})
	require.NoError(t, err)

	// TTL do Redis vence: registro some e o pagamento nunca liquida
	mr.FastForward(61 * time.Second)

	settled, err := issuer.CheckPayment(ctx, inv.PaymentHash)
	require.NoError(t, err)
	assert.False(t, settled)

	_, err = issuer.MarkSettled(ctx, inv.PaymentHash)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestMarkSettledAfterLogicalExpiry(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()

	now := time.Now()
	issuer.WithClock(func() time.Time { return now })

	inv, err := issuer.Create(ctx, CreateParams{AmountSats: 5_000, ExpiresIn: 60})
	require.NoError(t, err)

	// relógio lógico além do expires_at, ainda que o registro exista no Redis
	issuer.WithClock(func() time.Time { return now.Add(2 * time.Minute) })

	_, err = issuer.MarkSettled(ctx, inv.PaymentHash)
	assert.ErrorIs(t, err, ErrInvoiceExpired)

	settled, err := issuer.CheckPayment(ctx, inv.PaymentHash)
	require.NoError(t, err)
	assert.False(t, settled)
}
