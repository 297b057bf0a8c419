package odds

import (
	"errors"
	"fmt"
	"strings"
)

// Mercados suportados pela plataforma.
const (
	MarketMatchWinner = "match_winner"
	MarketSpread      = "spread"
	MarketTotals      = "totals"
	MarketProps       = "props"
	MarketSpecials    = "specials"
)

var (
	// ErrUnknownSelection indica seleção sem outcome conhecido no mercado informado.
	ErrUnknownSelection = errors.New("unknown selection")
	// ErrInvalidOdds indica odd < 1.0 — erro de integridade de dados, rejeitado na borda.
	ErrInvalidOdds = errors.New("invalid odds")
)

// MatchOdds carrega as odds 1x2 de uma partida.
type MatchOdds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// Resolve retorna a odd decimal para (market, selection).
// No mercado match_winner usa as odds da partida; nos demais, o catálogo estático.
// Odds abaixo de 1.0 nunca são aceitas.
func Resolve(market, selection string, matchOdds MatchOdds) (float64, error) {
	market = normalize(market)
	selection = normalize(selection)
	if market == "" {
		market = MarketMatchWinner
	}

	var odd float64
	switch market {
	case MarketMatchWinner:
		switch selection {
		case "home":
			odd = matchOdds.Home
		case "draw":
			odd = matchOdds.Draw
		case "away":
			odd = matchOdds.Away
		default:
			return 0, fmt.Errorf("%w: %q in market %q", ErrUnknownSelection, selection, market)
		}
	case MarketSpread, MarketTotals, MarketProps, MarketSpecials:
		sels, ok := catalog[market]
		if !ok {
			return 0, fmt.Errorf("%w: %q in market %q", ErrUnknownSelection, selection, market)
		}
		odd, ok = sels[selection]
		if !ok {
			return 0, fmt.Errorf("%w: %q in market %q", ErrUnknownSelection, selection, market)
		}
	default:
		return 0, fmt.Errorf("%w: %q in market %q", ErrUnknownSelection, selection, market)
	}

	if odd < 1.0 {
		return 0, fmt.Errorf("%w: %.4f for %q/%q", ErrInvalidOdds, odd, market, selection)
	}
	return odd, nil
}

// Fallback monta MatchOdds com a odd informada apenas na seleção apostada.
// Usado quando o cache de odds não tem a partida e só resta a odd vista pelo cliente.
func Fallback(selection string, odd float64) MatchOdds {
	switch normalize(selection) {
	case "home":
		return MatchOdds{Home: odd}
	case "draw":
		return MatchOdds{Draw: odd}
	case "away":
		return MatchOdds{Away: odd}
	}
	return MatchOdds{}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
