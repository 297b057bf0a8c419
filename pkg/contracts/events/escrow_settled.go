package events

import "time"

// Evento emitido após um escrow atingir estado terminal via liquidação ou expiração.
type EscrowSettled struct {
	EscrowID   string    `json:"escrow_id"`
	WalletID   string    `json:"wallet_id"`
	MatchID    string    `json:"match_id"`
	Status     string    `json:"status"` // "completed" | "refunded"
	PayoutSats int64     `json:"payout_sats"`
	Txid       string    `json:"txid,omitempty"`
	Ts         time.Time `json:"ts"`
}
