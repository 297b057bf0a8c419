package dto

import (
	"time"

	"github.com/satsbet/ln-escrow-core/internal/escrow-service/escrow"
)

type CreateWalletResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	WalletID string `json:"wallet_id,omitempty"`
	Adminkey string `json:"adminkey,omitempty"`
	Inkey    string `json:"inkey,omitempty"`
}

type BalanceResponse struct {
	Success bool   `json:"success"`
	Balance int64  `json:"balance"`
	Message string `json:"message,omitempty"`
}

type PlaceBetResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	EscrowID       string `json:"escrow_id,omitempty"`
	EscrowAddress  string `json:"escrow_address,omitempty"`
	PotentialWin   int64  `json:"potential_win,omitempty"`
	PaymentRequest string `json:"payment_request,omitempty"`
	PaymentHash    string `json:"payment_hash,omitempty"`
	NewBalance     *int64 `json:"new_balance,omitempty"`
}

type EscrowResponse struct {
	ID              string    `json:"id"`
	MatchID         string    `json:"match_id"`
	Market          string    `json:"market"`
	SelectedOutcome string    `json:"selected_outcome"`
	Odds            float64   `json:"odds"`
	AmountSats      int64     `json:"amount_sats"`
	PotentialWin    int64     `json:"potential_win"`
	Status          string    `json:"status"`
	EscrowAddress   string    `json:"escrow_address"`
	Txid            string    `json:"txid,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// FromEscrow converte o modelo de domínio pra resposta da API.
func FromEscrow(e *escrow.Escrow) EscrowResponse {
	return EscrowResponse{
		ID:              e.ID,
		MatchID:         e.MatchID,
		Market:          e.Market,
		SelectedOutcome: e.SelectedOutcome,
		Odds:            e.Odds,
		AmountSats:      e.AmountSats,
		PotentialWin:    e.PotentialWin(),
		Status:          string(e.Status),
		EscrowAddress:   e.EscrowAddress,
		Txid:            e.Txid,
		CreatedAt:       e.CreatedAt,
		ExpiresAt:       e.ExpiresAt,
	}
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
