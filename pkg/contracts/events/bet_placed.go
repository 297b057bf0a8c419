package events

// Evento publicado no tópico "bet_placed" após a orquestração completa
// (escrow ativo + débito efetuado).
type BetPlaced struct {
	EscrowID     string  `json:"escrow_id"`
	WalletID     string  `json:"wallet_id"`
	MatchID      string  `json:"match_id"`
	Market       string  `json:"market"`
	Selection    string  `json:"selection"`
	AmountSats   int64   `json:"amount_sats"`
	Odds         float64 `json:"odds"`
	PotentialWin int64   `json:"potential_win"`
	TsUnixMs     int64   `json:"ts_unix_ms"`
}
