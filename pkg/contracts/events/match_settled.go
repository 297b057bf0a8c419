package events

import "time"

// Sinal externo de liquidação de uma partida, consumido pelo settlement-worker.
// WinningOutcome: "home" | "draw" | "away" | rótulo de prop | "cancelled"
type MatchSettled struct {
	MatchID        string    `json:"match_id"`
	WinningOutcome string    `json:"winning_outcome"`
	Source         string    `json:"source,omitempty"`
	Ts             time.Time `json:"ts"`
}
