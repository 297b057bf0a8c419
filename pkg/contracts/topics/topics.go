package topics

const (
	// Odds
	OddsUpdates = "odds_updates"

	// Apostas / escrows
	BetPlaced     = "bet_placed"
	MatchSettled  = "match_settled"
	EscrowSettled = "escrow_settled"

	// DLQs
	MatchSettledDLQ = "match_settled_dlq"
)
