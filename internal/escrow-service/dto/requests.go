package dto

import "github.com/go-playground/validator/v10"

var validate = validator.New()

type CreateWalletRequest struct {
	Username string `json:"username" validate:"required"`
}

func (r *CreateWalletRequest) Validate() error { return validate.Struct(r) }

type DepositRequest struct {
	Adminkey   string `json:"adminkey" validate:"required"`
	AmountSats int64  `json:"amount_sats" validate:"required,gt=0"`
}

func (r *DepositRequest) Validate() error { return validate.Struct(r) }

type PlaceBetRequest struct {
	MatchID         string  `json:"match_id" validate:"required"`
	SelectedOutcome string  `json:"selected_outcome" validate:"required"`
	Market          string  `json:"market,omitempty"` // default "match_winner"
	WalletAdminkey  string  `json:"wallet_adminkey" validate:"required"`
	WalletInkey     string  `json:"wallet_inkey" validate:"required"`
	Odds            float64 `json:"odds" validate:"required,gte=1"`
	Amount          int64   `json:"amount" validate:"required,gt=0"`
}

func (r *PlaceBetRequest) Validate() error { return validate.Struct(r) }

type ResolveBetRequest struct {
	MatchID        string `json:"match_id" validate:"required"`
	WinningOutcome string `json:"winning_outcome" validate:"required"`
}

func (r *ResolveBetRequest) Validate() error { return validate.Struct(r) }

type PaymentWebhookRequest struct {
	PaymentHash string `json:"payment_hash" validate:"required"`
}

func (r *PaymentWebhookRequest) Validate() error { return validate.Struct(r) }
