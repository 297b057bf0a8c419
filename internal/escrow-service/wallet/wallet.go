package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Wallet é a carteira de um usuário. adminkey autoriza gastos; inkey só leitura
// (mesmo formato de credenciais do LNbits).
type Wallet struct {
	ID          string    `json:"wallet_id"`
	Username    string    `json:"username"`
	Adminkey    string    `json:"adminkey"`
	Inkey       string    `json:"inkey"`
	BalanceSats int64     `json:"balance_sats"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repo é a persistência da carteira. Debit e Credit são atômicos
// (read-check-write numa unidade só); o saldo nunca fica negativo.
type Repo interface {
	Create(ctx context.Context, w *Wallet) error
	GetByID(ctx context.Context, id string) (*Wallet, error)
	GetByInkey(ctx context.Context, inkey string) (*Wallet, error)
	GetByAdminkey(ctx context.Context, adminkey string) (*Wallet, error)
	Debit(ctx context.Context, walletID string, amountSats int64, ref string) (newBalance int64, err error)
	Credit(ctx context.Context, walletID string, amountSats int64, ref string) (newBalance int64, err error)
}

// Ledger é o serviço de saldo: debita na colocação da aposta e credita
// payouts/estornos. Sessão = carteira resolvida pelas chaves.
type Ledger struct {
	log  *zap.Logger
	repo Repo
}

func NewLedger(log *zap.Logger, repo Repo) *Ledger {
	return &Ledger{log: log, repo: repo}
}

// CreateWallet cria a carteira com id e par de chaves novos.
func (l *Ledger) CreateWallet(ctx context.Context, username string) (*Wallet, error) {
	w := &Wallet{
		ID:        uuid.NewString(),
		Username:  username,
		Adminkey:  newKey(),
		Inkey:     newKey(),
		CreatedAt: time.Now(),
	}
	if err := l.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	l.log.Info("wallet created", zap.String("walletId", w.ID), zap.String("username", username))
	return w, nil
}

// Session resolve a carteira pela adminkey; ausência equivale a não autenticado.
func (l *Ledger) Session(ctx context.Context, adminkey string) (*Wallet, error) {
	return l.repo.GetByAdminkey(ctx, adminkey)
}

// Balance é a leitura pontual do saldo pela inkey.
func (l *Ledger) Balance(ctx context.Context, inkey string) (int64, error) {
	w, err := l.repo.GetByInkey(ctx, inkey)
	if err != nil {
		return 0, err
	}
	return w.BalanceSats, nil
}

// WalletByInkey resolve a carteira pela chave de leitura.
func (l *Ledger) WalletByInkey(ctx context.Context, inkey string) (*Wallet, error) {
	return l.repo.GetByInkey(ctx, inkey)
}

// Debit subtrai do saldo com checagem atômica; saldo insuficiente é rejeitado
// antes de qualquer mutação.
func (l *Ledger) Debit(ctx context.Context, walletID string, amountSats int64, ref string) (int64, error) {
	if amountSats <= 0 {
		return 0, fmt.Errorf("%w: debit of %d", ErrInvalidAmount, amountSats)
	}
	bal, err := l.repo.Debit(ctx, walletID, amountSats, ref)
	if err != nil {
		return 0, err
	}
	l.log.Info("wallet debited", zap.String("walletId", walletID), zap.Int64("amountSats", amountSats))
	return bal, nil
}

// Credit soma ao saldo; sem teto.
func (l *Ledger) Credit(ctx context.Context, walletID string, amountSats int64, ref string) (int64, error) {
	if amountSats <= 0 {
		return 0, fmt.Errorf("%w: credit of %d", ErrInvalidAmount, amountSats)
	}
	bal, err := l.repo.Credit(ctx, walletID, amountSats, ref)
	if err != nil {
		return 0, err
	}
	l.log.Info("wallet credited", zap.String("walletId", walletID), zap.Int64("amountSats", amountSats))
	return bal, nil
}

// Deposit credita via adminkey (carteiras de demonstração e top-ups).
func (l *Ledger) Deposit(ctx context.Context, adminkey string, amountSats int64) (int64, error) {
	w, err := l.repo.GetByAdminkey(ctx, adminkey)
	if err != nil {
		return 0, err
	}
	return l.Credit(ctx, w.ID, amountSats, "deposit")
}

// newKey gera chave hex de 32 chars, estilo LNbits.
func newKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
