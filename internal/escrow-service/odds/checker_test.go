package odds

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChecker(t *testing.T) (*Checker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewChecker(rdb), mr
}

func TestCheckerCurrentOdd(t *testing.T) {
	c, mr := newTestChecker(t)
	ctx := context.Background()

	mr.Set("odds:match-1:match_winner:home", "1.85")

	odd, ok, err := c.CurrentOdd(ctx, "match-1", MarketMatchWinner, "home")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.85, odd)

	// chave ausente não é erro, é cache miss
	_, ok, err = c.CurrentOdd(ctx, "match-2", MarketMatchWinner, "home")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckerCurrentMatchOdds(t *testing.T) {
	c, mr := newTestChecker(t)
	ctx := context.Background()

	mr.Set("odds:match-1:match_winner:home", "1.85")
	mr.Set("odds:match-1:match_winner:draw", "3.40")
	mr.Set("odds:match-1:match_winner:away", "4.20")

	mo, ok, err := c.CurrentMatchOdds(ctx, "match-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, MatchOdds{Home: 1.85, Draw: 3.40, Away: 4.20}, mo)

	// sem a chave home o cache é tratado como vazio
	_, ok, err = c.CurrentMatchOdds(ctx, "match-9")
	require.NoError(t, err)
	assert.False(t, ok)
}
