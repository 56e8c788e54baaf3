package engine

import (
	"context"
	"testing"
	"time"

	"github.com/knightline/game"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T, delay time.Duration) *Local {
	t.Helper()
	conf := DefaultLocalConfig()
	conf.Search.Seed = 7
	conf.PerLevelDelay = delay
	return NewLocal(game.ChessRules(nil), conf)
}

func TestLocalBestMove(t *testing.T) {
	l := newTestLocal(t, 0)
	ctx := context.Background()

	_, err := l.BestMove(ctx, time.Second, 2)
	assert.Equal(t, ErrNotStarted, errors.Cause(err))

	require.NoError(t, l.Start())
	_, err = l.BestMove(ctx, time.Second, 2)
	assert.Equal(t, ErrNotStarted, errors.Cause(err), "no game set up yet")

	mate := game.MustFEN("6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	require.NoError(t, l.SetupNewGame(ctx, mate))
	m, err := l.BestMove(ctx, time.Second, 2)
	require.NoError(t, err)
	assert.Equal(t, "a1a8", m.String())

	legal := game.ChessRules(nil).AllLegalMoves(mate)
	m, err = l.BestMove(ctx, time.Second, 0)
	require.NoError(t, err)
	assert.Contains(t, legal, m)
}

func TestLocalNoMove(t *testing.T) {
	l := newTestLocal(t, 0)
	require.NoError(t, l.Start())
	require.NoError(t, l.SetupNewGame(context.Background(), game.MustFEN("k7/1Q6/1K6/8/8/8/8/8 b - - 0 1")))

	for _, depth := range []int{0, 2} {
		_, err := l.BestMove(context.Background(), time.Second, depth)
		assert.Equal(t, ErrNoMove, errors.Cause(err))
	}
}

func TestLocalRestart(t *testing.T) {
	l := newTestLocal(t, 0)
	require.NoError(t, l.Start())
	require.NoError(t, l.SetupNewGame(context.Background(), game.StartingSnapshot()))
	require.NoError(t, l.Shutdown())

	_, err := l.BestMove(context.Background(), time.Second, 1)
	assert.Equal(t, ErrNotStarted, errors.Cause(err))
	assert.Equal(t, ErrNotStarted, l.SetupNewGame(context.Background(), game.StartingSnapshot()))

	require.NoError(t, l.Start())
	_, err = l.BestMove(context.Background(), time.Second, 1)
	assert.NoError(t, err)
}

func TestLocalDelayHonoursCancel(t *testing.T) {
	l := newTestLocal(t, time.Hour)
	require.NoError(t, l.Start())
	require.NoError(t, l.SetupNewGame(context.Background(), game.StartingSnapshot()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := l.BestMove(ctx, time.Second, 1)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestThinkDelay(t *testing.T) {
	step := 700 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, thinkDelay(10*time.Millisecond, 0, step))
	assert.Equal(t, 300*time.Millisecond, thinkDelay(300*time.Millisecond, 0, step))
	assert.Equal(t, 500*time.Millisecond+2*step, thinkDelay(5*time.Second, 2, step))
}

func TestLocalLastTrace(t *testing.T) {
	conf := DefaultLocalConfig()
	conf.PerLevelDelay = 0
	conf.Search.Trace = true
	l := NewLocal(game.ChessRules(nil), conf)
	assert.Equal(t, "", l.LastTrace())

	require.NoError(t, l.Start())
	require.NoError(t, l.SetupNewGame(context.Background(), game.MustFEN("6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")))
	_, err := l.BestMove(context.Background(), time.Second, 1)
	require.NoError(t, err)
	assert.Contains(t, l.LastTrace(), "digraph")
}
