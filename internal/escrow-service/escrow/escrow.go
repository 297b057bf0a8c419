package escrow

import (
	"context"
	"errors"
	"math"
	"time"
)

// Status do ciclo de vida de um escrow:
// pending -> active -> {completed | refunded | disputed}
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
	StatusDisputed  Status = "disputed"
)

// Terminal indica se o status encerra o ciclo de vida (histórico imutável).
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRefunded, StatusDisputed:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusRefunded},
	StatusActive:  {StatusCompleted, StatusRefunded, StatusDisputed},
}

// CanTransition valida a máquina de estados.
func (s Status) CanTransition(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

var (
	ErrInvalidBet          = errors.New("invalid bet")
	ErrEscrowNotFound      = errors.New("escrow not found")
	ErrFundingVerification = errors.New("funding verification failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Escrow representa os fundos travados de uma aposta pendente ou resolvida.
type Escrow struct {
	ID              string    `json:"id"`
	WalletID        string    `json:"wallet_id"`
	MatchID         string    `json:"match_id"`
	Market          string    `json:"market"`
	SelectedOutcome string    `json:"selected_outcome"`
	Odds            float64   `json:"odds"`
	AmountSats      int64     `json:"amount_sats"`
	Status          Status    `json:"status"`
	EscrowAddress   string    `json:"escrow_address"` // destino de liquidação, imutável após criação
	Txid            string    `json:"txid,omitempty"` // presente só após completed/refunded com captura
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PotentialWin é sempre derivado de amount e odds, nunca armazenado à parte.
func (e *Escrow) PotentialWin() int64 {
	return int64(math.Round(float64(e.AmountSats) * e.Odds))
}

// Store é a persistência de escrows. UpdateStatus é um CAS guardado pelo
// status de origem: falha com ErrInvalidTransition se o estado atual divergir.
type Store interface {
	Insert(ctx context.Context, e *Escrow) error
	Get(ctx context.Context, id string) (*Escrow, error)
	ListByWallet(ctx context.Context, walletID string) ([]Escrow, error)
	ListActiveByMatch(ctx context.Context, matchID string) ([]Escrow, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, txid string) error
	SweepExpired(ctx context.Context, now time.Time) ([]Escrow, error)
}
