package events

import "time"

// Odds de um mercado 1x2 (vencedor da partida).
type Odds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// Evento publicado no tópico "odds_updates" e retransmitido via WebSocket.
type OddsUpdate struct {
	MatchID   string    `json:"match_id"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	Market    string    `json:"market"` // "match_winner"
	Odds      Odds      `json:"odds"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
	Version   int       `json:"version"`
}
