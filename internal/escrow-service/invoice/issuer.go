package invoice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidInvoice  = errors.New("invalid invoice")
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrAlreadySettled  = errors.New("invoice already settled")
	ErrInvoiceExpired  = errors.New("invoice expired")
)

// Invoice é uma cobrança Lightning de vida curta usada para capturar o valor
// de um escrow. Expira sozinha (TTL no Redis) e é consumida uma única vez.
type Invoice struct {
	PaymentRequest string    `json:"payment_request"`
	PaymentHash    string    `json:"payment_hash"`
	AmountSats     int64     `json:"amount_sats"`
	Memo           string    `json:"memo,omitempty"`
	ExternalRef    string    `json:"external_ref,omitempty"` // ex: escrowID
	Settled        bool      `json:"settled"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	SettledAt      time.Time `json:"settled_at,omitempty"`
}

// Issuer emite e acompanha invoices. O registro vive no Redis com TTL igual
// à validade da invoice; depois de paga, fica retida por mais um período para
// permitir a verificação do funding.
type Issuer struct {
	rdb   *redis.Client
	clock func() time.Time
}

// Retenção do registro após liquidação.
const settledRetention = 24 * time.Hour

func NewIssuer(rdb *redis.Client) *Issuer {
	return &Issuer{rdb: rdb, clock: time.Now}
}

func key(paymentHash string) string { return "invoice:" + paymentHash }

type CreateParams struct {
	AmountSats  int64
	Memo        string
	ExpiresIn   int64 // segundos
	ExternalRef string
}

// Create emite uma nova invoice com hash único e TTL = ExpiresIn.
func (i *Issuer) Create(ctx context.Context, p CreateParams) (*Invoice, error) {
	if p.AmountSats <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInvoice)
	}
	if p.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: expiresIn must be positive", ErrInvalidInvoice)
	}

	now := i.clock()
	hash := newPaymentHash()
	inv := &Invoice{
		PaymentRequest: fmt.Sprintf("lnbc%dn1p%s", p.AmountSats, hash[:24]),
		PaymentHash:    hash,
		AmountSats:     p.AmountSats,
		Memo:           p.Memo,
		ExternalRef:    p.ExternalRef,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Duration(p.ExpiresIn) * time.Second),
	}

	b, err := json.Marshal(inv)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(p.ExpiresIn) * time.Second
	if err := i.rdb.Set(ctx, key(hash), b, ttl).Err(); err != nil {
		return nil, fmt.Errorf("store invoice: %w", err)
	}
	return inv, nil
}

// Lookup busca a invoice pelo payment hash.
func (i *Issuer) Lookup(ctx context.Context, paymentHash string) (*Invoice, error) {
	b, err := i.rdb.Get(ctx, key(paymentHash)).Bytes()
	if err == redis.Nil {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup invoice: %w", err)
	}
	var inv Invoice
	if err := json.Unmarshal(b, &inv); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	return &inv, nil
}

// CheckPayment é uma consulta idempotente de liquidação.
// Invoice inexistente ou expirada responde settled=false, sem erro.
func (i *Issuer) CheckPayment(ctx context.Context, paymentHash string) (bool, error) {
	inv, err := i.Lookup(ctx, paymentHash)
	if errors.Is(err, ErrInvoiceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !inv.Settled && !i.clock().Before(inv.ExpiresAt) {
		return false, nil
	}
	return inv.Settled, nil
}

// MarkSettled registra o pagamento de uma invoice. Cada invoice é consumida
// exatamente uma vez; pagar de novo ou pagar após expirar é rejeitado.
func (i *Issuer) MarkSettled(ctx context.Context, paymentHash string) (*Invoice, error) {
	inv, err := i.Lookup(ctx, paymentHash)
	if err != nil {
		return nil, err
	}
	if inv.Settled {
		return nil, ErrAlreadySettled
	}
	now := i.clock()
	if !now.Before(inv.ExpiresAt) {
		return nil, ErrInvoiceExpired
	}

	inv.Settled = true
	inv.SettledAt = now
	b, err := json.Marshal(inv)
	if err != nil {
		return nil, err
	}
	if err := i.rdb.Set(ctx, key(paymentHash), b, settledRetention).Err(); err != nil {
		return nil, fmt.Errorf("store settled invoice: %w", err)
	}
	return inv, nil
}

// WithClock troca a fonte de tempo (testes).
func (i *Issuer) WithClock(clock func() time.Time) *Issuer {
	i.clock = clock
	return i
}

func newPaymentHash() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
