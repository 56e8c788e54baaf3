package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/knightline/game"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBridge struct {
	initPanics bool
	reply      string
	err        error
	panics     bool
	block      chan struct{}

	gotFEN   string
	gotDepth int
	closed   int

	mu                    sync.Mutex
	calls, inflight, peak int
}

func (b *stubBridge) Init() (string, error) {
	if b.initPanics {
		panic("native library missing")
	}
	return "stub", nil
}

func (b *stubBridge) BestMove(fen string, depth int, budget time.Duration) (string, error) {
	b.mu.Lock()
	b.calls++
	b.inflight++
	if b.inflight > b.peak {
		b.peak = b.inflight
	}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.inflight--
		b.mu.Unlock()
	}()

	if b.block != nil {
		<-b.block
	}
	if b.panics {
		panic("segfault in native code")
	}
	b.gotFEN, b.gotDepth = fen, depth
	return b.reply, b.err
}

func (b *stubBridge) Close() error {
	b.closed++
	return nil
}

func startBridge(t *testing.T, b *stubBridge) *BridgeClient {
	t.Helper()
	c := NewBridgeClient(b, game.ChessRules(nil), nil)
	require.NoError(t, c.Start())
	require.NoError(t, c.SetupNewGame(context.Background(), game.StartingSnapshot()))
	return c
}

func TestBridgeBestMove(t *testing.T) {
	b := &stubBridge{reply: "b1c3"}
	c := startBridge(t, b)

	m, err := c.BestMove(context.Background(), time.Second, 3)
	require.NoError(t, err)
	assert.Equal(t, game.Move(game.Sq(2, 1), game.Sq(3, 3)), m)
	assert.Equal(t, game.StartFEN, b.gotFEN)
	assert.Equal(t, 3, b.gotDepth)

	require.NoError(t, c.Shutdown())
	require.NoError(t, c.Shutdown())
	assert.Equal(t, 1, b.closed)

	require.NoError(t, c.Start(), "restartable")
}

func TestBridgeFailuresNeverCrash(t *testing.T) {
	for name, b := range map[string]*stubBridge{
		"panic":   {panics: true},
		"error":   {err: errors.New("bridge unavailable")},
		"illegal": {reply: "e2e5"},
		"empty":   {},
	} {
		t.Run(name, func(t *testing.T) {
			c := startBridge(t, b)
			_, err := c.BestMove(context.Background(), time.Second, 1)
			assert.Error(t, err)
		})
	}

	_, err := startBridge(t, &stubBridge{}).BestMove(context.Background(), time.Second, 1)
	assert.Equal(t, ErrNoMove, errors.Cause(err))
	_, err = startBridge(t, &stubBridge{reply: "e2e5"}).BestMove(context.Background(), time.Second, 1)
	assert.Equal(t, ErrIllegalMove, errors.Cause(err))
}

func TestBridgeInitPanic(t *testing.T) {
	c := NewBridgeClient(&stubBridge{initPanics: true}, game.ChessRules(nil), nil)
	err := c.Start()
	require.Error(t, err)
	var op *OpError
	require.True(t, errors.As(err, &op))
	assert.Equal(t, "init", op.Op)

	_, err = c.BestMove(context.Background(), time.Second, 1)
	assert.Equal(t, ErrNotStarted, errors.Cause(err))
}

func TestBridgeCancel(t *testing.T) {
	b := &stubBridge{reply: "e2e4", block: make(chan struct{})}
	c := startBridge(t, b)
	defer close(b.block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.BestMove(ctx, time.Second, 1)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func (b *stubBridge) counts() (calls, peak int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls, b.peak
}

func TestBridgeAbandonedCallBlocksLaterCalls(t *testing.T) {
	b := &stubBridge{reply: "e2e4", block: make(chan struct{})}
	c := startBridge(t, b)

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		_, err := c.BestMove(ctx, time.Second, 1)
		cancel()
		assert.Equal(t, context.DeadlineExceeded, err)
	}
	calls, _ := b.counts()
	assert.Equal(t, 1, calls, "the second request waits for the abandoned one")

	shut := make(chan error, 1)
	go func() { shut <- c.Shutdown() }()
	select {
	case <-shut:
		t.Fatal("bridge closed while a call was running")
	case <-time.After(30 * time.Millisecond):
	}
	close(b.block)
	require.NoError(t, <-shut)
	assert.Equal(t, 1, b.closed)

	require.NoError(t, c.Start())
	require.NoError(t, c.SetupNewGame(context.Background(), game.StartingSnapshot()))
	m, err := c.BestMove(context.Background(), time.Second, 1)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", m.String())
	_, peak := b.counts()
	assert.Equal(t, 1, peak)
}
