package odds

// Catálogo estático de odds para mercados fora do 1x2.
// Espelha as linhas fixas exibidas pelas telas de apostas; odds 1x2
// chegam dinamicamente pelo cache (ver Checker).
var catalog = map[string]map[string]float64{
	MarketSpread: {
		"home_-1.5": 2.75,
		"home_-0.5": 1.95,
		"away_+0.5": 1.85,
		"away_+1.5": 1.40,
	},
	MarketTotals: {
		"over_1.5":  1.30,
		"under_1.5": 3.40,
		"over_2.5":  1.95,
		"under_2.5": 1.85,
		"over_3.5":  3.10,
		"under_3.5": 1.35,
	},
	MarketProps: {
		"both_teams_to_score":  1.72,
		"first_goal_before_30": 2.10,
		"penalty_awarded":      3.25,
		"red_card_shown":       4.50,
		"hat_trick_scored":     9.00,
		"clean_sheet_home":     2.60,
		"clean_sheet_away":     3.00,
	},
	MarketSpecials: {
		"comeback_win":         6.50,
		"win_to_nil_home":      3.40,
		"win_to_nil_away":      4.20,
		"score_in_both_halves": 2.25,
		"overtime_decided":     7.00,
	},
}
