package odds

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Checker consulta no Redis a odd corrente de uma seleção.
// Chave "odds:{matchID}:{market}:{selection}" => valor string com a odd, ex: "1.85".
type Checker struct {
	Rdb *redis.Client
}

func NewChecker(r *redis.Client) *Checker { return &Checker{Rdb: r} }

// CurrentOdd retorna a odd corrente e um flag de presença no cache.
func (c *Checker) CurrentOdd(ctx context.Context, matchID, market, selection string) (float64, bool, error) {
	key := fmt.Sprintf("odds:%s:%s:%s", matchID, normalize(market), normalize(selection))
	val, err := c.Rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	odd, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached odd %q: %w", val, err)
	}
	return odd, true, nil
}

// CurrentMatchOdds monta MatchOdds a partir do cache. ok indica se ao menos
// a seleção home estava presente (as três chaves são gravadas juntas).
func (c *Checker) CurrentMatchOdds(ctx context.Context, matchID string) (MatchOdds, bool, error) {
	var mo MatchOdds
	home, ok, err := c.CurrentOdd(ctx, matchID, MarketMatchWinner, "home")
	if err != nil || !ok {
		return mo, false, err
	}
	draw, _, err := c.CurrentOdd(ctx, matchID, MarketMatchWinner, "draw")
	if err != nil {
		return mo, false, err
	}
	away, _, err := c.CurrentOdd(ctx, matchID, MarketMatchWinner, "away")
	if err != nil {
		return mo, false, err
	}
	mo = MatchOdds{Home: home, Draw: draw, Away: away}
	return mo, true, nil
}
