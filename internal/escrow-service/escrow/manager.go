package escrow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/invoice"
)

// InvoiceLookup é a visão mínima do emissor de invoices usada no funding.
type InvoiceLookup interface {
	Lookup(ctx context.Context, paymentHash string) (*invoice.Invoice, error)
}

// Ledger credita payouts e estornos na carteira do apostador.
type Ledger interface {
	Credit(ctx context.Context, walletID string, amountSats int64, ref string) (int64, error)
}

// Manager é o dono do ciclo de vida do escrow: criação, funding,
// liberação, estorno e disputa. Estados terminais nunca são mutados.
type Manager struct {
	log      *zap.Logger
	store    Store
	invoices InvoiceLookup
	ledger   Ledger
	clock    func() time.Time
}

func NewManager(log *zap.Logger, store Store, invoices InvoiceLookup, ledger Ledger) *Manager {
	return &Manager{
		log:      log,
		store:    store,
		invoices: invoices,
		ledger:   ledger,
		clock:    time.Now,
	}
}

// WithClock troca a fonte de tempo (testes).
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

type CreateParams struct {
	WalletID        string
	MatchID         string
	Market          string
	SelectedOutcome string
	Odds            float64
	AmountSats      int64
	ExpiresAt       time.Time
}

// Create valida as pré-condições da aposta e registra o escrow em pending.
// expiresAt igual a agora também é rejeitado.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*Escrow, error) {
	now := m.clock()
	switch {
	case p.WalletID == "" || p.MatchID == "" || p.SelectedOutcome == "":
		return nil, fmt.Errorf("%w: wallet, match and selection are required", ErrInvalidBet)
	case p.AmountSats <= 0:
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidBet)
	case p.Odds < 1.0:
		return nil, fmt.Errorf("%w: odds must be >= 1.0", ErrInvalidBet)
	case !p.ExpiresAt.After(now):
		return nil, fmt.Errorf("%w: expiresAt must be in the future", ErrInvalidBet)
	}

	e := &Escrow{
		ID:              "escrow_" + uuid.NewString(),
		WalletID:        p.WalletID,
		MatchID:         p.MatchID,
		Market:          p.Market,
		SelectedOutcome: p.SelectedOutcome,
		Odds:            p.Odds,
		AmountSats:      p.AmountSats,
		Status:          StatusPending,
		EscrowAddress:   newEscrowAddress(),
		CreatedAt:       now,
		ExpiresAt:       p.ExpiresAt,
		UpdatedAt:       now,
	}
	if err := m.store.Insert(ctx, e); err != nil {
		return nil, err
	}
	m.log.Info("escrow created",
		zap.String("escrowId", e.ID),
		zap.String("matchId", e.MatchID),
		zap.Int64("amountSats", e.AmountSats),
		zap.Float64("odds", e.Odds),
	)
	return e, nil
}

// Fund transiciona pending -> active mediante invoice liquidada que case com
// o escrow (mesmo external_ref e mesmo valor). Idempotente se já estiver active.
func (m *Manager) Fund(ctx context.Context, escrowID, paymentHash string) error {
	e, err := m.Get(ctx, escrowID)
	if err != nil {
		return err
	}
	if e.Status == StatusActive {
		return nil // já fundado; sem débito duplicado
	}
	if e.Status != StatusPending {
		return fmt.Errorf("%w: fund from %s", ErrInvalidTransition, e.Status)
	}

	inv, err := m.invoices.Lookup(ctx, paymentHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFundingVerification, err)
	}
	switch {
	case !inv.Settled:
		return fmt.Errorf("%w: invoice not settled", ErrFundingVerification)
	case inv.ExternalRef != escrowID:
		return fmt.Errorf("%w: invoice does not reference escrow", ErrFundingVerification)
	case inv.AmountSats != e.AmountSats:
		return fmt.Errorf("%w: invoice amount mismatch", ErrFundingVerification)
	}

	return m.store.UpdateStatus(ctx, escrowID, StatusPending, StatusActive, "")
}

// Release transiciona active -> completed e credita o potentialWin.
// Só é permitido quando o desfecho saiu a favor do apostador.
func (m *Manager) Release(ctx context.Context, escrowID string) (*Escrow, error) {
	e, err := m.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusActive {
		return nil, fmt.Errorf("%w: release from %s", ErrInvalidTransition, e.Status)
	}

	txid := newTxid()
	if err := m.store.UpdateStatus(ctx, escrowID, StatusActive, StatusCompleted, txid); err != nil {
		return nil, err
	}
	e.Status = StatusCompleted
	e.Txid = txid

	payout := e.PotentialWin()
	if _, err := m.ledger.Credit(ctx, e.WalletID, payout, "escrow-release:"+escrowID); err != nil {
		// transição já persistida; crédito falho é erro de integridade, nunca silenciado
		m.log.Error("payout credit failed", zap.String("escrowId", escrowID), zap.Error(err))
		return nil, err
	}
	m.log.Info("escrow released",
		zap.String("escrowId", escrowID),
		zap.Int64("payoutSats", payout),
	)
	return e, nil
}

// Refund transiciona pending|active -> refunded. Vindo de active o valor da
// aposta volta pra carteira (fundos capturados); vindo de pending não há crédito.
func (m *Manager) Refund(ctx context.Context, escrowID string) (*Escrow, error) {
	e, err := m.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	switch e.Status {
	case StatusPending:
		if err := m.store.UpdateStatus(ctx, escrowID, StatusPending, StatusRefunded, ""); err != nil {
			return nil, err
		}
		e.Status = StatusRefunded
		return e, nil
	case StatusActive:
		txid := newTxid()
		if err := m.store.UpdateStatus(ctx, escrowID, StatusActive, StatusRefunded, txid); err != nil {
			return nil, err
		}
		e.Status = StatusRefunded
		e.Txid = txid
		if _, err := m.ledger.Credit(ctx, e.WalletID, e.AmountSats, "escrow-refund:"+escrowID); err != nil {
			m.log.Error("refund credit failed", zap.String("escrowId", escrowID), zap.Error(err))
			return nil, err
		}
		m.log.Info("escrow refunded", zap.String("escrowId", escrowID), zap.Int64("amountSats", e.AmountSats))
		return e, nil
	default:
		return nil, fmt.Errorf("%w: refund from %s", ErrInvalidTransition, e.Status)
	}
}

// Cancel leva pending|active -> refunded sem crédito no ledger. É o caminho
// de rollback da orquestração e da expiração: nenhum débito aconteceu.
func (m *Manager) Cancel(ctx context.Context, escrowID string) error {
	e, err := m.store.Get(ctx, escrowID)
	if err != nil {
		return err
	}
	if e.Status == StatusRefunded {
		return nil
	}
	if !e.Status.CanTransition(StatusRefunded) {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, e.Status)
	}
	return m.store.UpdateStatus(ctx, escrowID, e.Status, StatusRefunded, "")
}

// Dispute transiciona active -> disputed; a resolução é manual/externa.
func (m *Manager) Dispute(ctx context.Context, escrowID string) (*Escrow, error) {
	e, err := m.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusActive {
		return nil, fmt.Errorf("%w: dispute from %s", ErrInvalidTransition, e.Status)
	}
	if err := m.store.UpdateStatus(ctx, escrowID, StatusActive, StatusDisputed, ""); err != nil {
		return nil, err
	}
	e.Status = StatusDisputed
	return e, nil
}

// Get lê o escrow aplicando a checagem preguiçosa de expiração:
// pending vencido vira refunded na hora da leitura, nunca fica pendurado.
func (m *Manager) Get(ctx context.Context, escrowID string) (*Escrow, error) {
	e, err := m.store.Get(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	return m.expireLazy(ctx, e)
}

// ListByWallet lista escrows da carteira, com a mesma checagem de expiração.
func (m *Manager) ListByWallet(ctx context.Context, walletID string) ([]Escrow, error) {
	list, err := m.store.ListByWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		e, err := m.expireLazy(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		list[i] = *e
	}
	return list, nil
}

func (m *Manager) expireLazy(ctx context.Context, e *Escrow) (*Escrow, error) {
	if e.Status != StatusPending || m.clock().Before(e.ExpiresAt) {
		return e, nil
	}
	if err := m.store.UpdateStatus(ctx, e.ID, StatusPending, StatusRefunded, ""); err != nil {
		return nil, err
	}
	m.log.Info("escrow expired", zap.String("escrowId", e.ID))
	e.Status = StatusRefunded
	return e, nil
}

// newEscrowAddress gera o endereço taproot-like opaco de liquidação.
func newEscrowAddress() string {
	return "bc1p" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newTxid() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
