package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/knightline/game"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine speaks just enough UCI over io.Pipe to drive a Process.
type fakeEngine struct {
	sync.Mutex
	cmds   []string
	spawns int

	silent   bool                         // never answers uci
	exitOnGo bool                         // closes its output instead of searching
	reply    func(position string) string // "" never answers go
}

func (f *fakeEngine) Spawn() (Pipe, error) {
	f.Lock()
	f.spawns++
	f.Unlock()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	done := make(chan struct{})
	go f.serve(inR, outW, done)
	stop := func() error {
		<-done
		return nil
	}
	return Pipe{In: inW, Out: outR, Stop: stop}, nil
}

func (f *fakeEngine) serve(in *io.PipeReader, out *io.PipeWriter, done chan struct{}) {
	defer close(done)
	defer in.Close()
	defer out.Close()

	var position string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		f.Lock()
		f.cmds = append(f.cmds, line)
		f.Unlock()

		switch {
		case line == "uci":
			if !f.silent {
				fmt.Fprint(out, "id name fake\nid author nobody\nuciok\n")
			}
		case line == "isready":
			fmt.Fprintln(out, "readyok")
		case line == "quit":
			return
		case strings.HasPrefix(line, "position "):
			position = strings.TrimPrefix(line, "position ")
		case strings.HasPrefix(line, "go "):
			if f.exitOnGo {
				return
			}
			if f.reply == nil {
				continue
			}
			if mv := f.reply(position); mv != "" {
				fmt.Fprintf(out, "info depth 1 score cp 13\ninfo string thinking\nbestmove %s\n", mv)
			}
		}
	}
}

func (f *fakeEngine) commands() []string {
	f.Lock()
	defer f.Unlock()
	retVal := make([]string, len(f.cmds))
	copy(retVal, f.cmds)
	return retVal
}

func (f *fakeEngine) count(cmd string) int {
	var n int
	for _, c := range f.commands() {
		if c == cmd {
			n++
		}
	}
	return n
}

func testProcessConfig() ProcessConfig {
	conf := DefaultProcessConfig()
	conf.HandshakeTimeout = time.Second
	conf.Grace = 500 * time.Millisecond
	return conf
}

func startProcess(t *testing.T, fake *fakeEngine, conf ProcessConfig) *Process {
	t.Helper()
	p := NewProcess(game.ChessRules(nil), fake, conf)
	require.NoError(t, p.Start())
	require.NoError(t, p.SetupNewGame(context.Background(), game.StartingSnapshot()))
	return p
}

func TestProcessHandshake(t *testing.T) {
	fake := &fakeEngine{}
	p := startProcess(t, fake, testProcessConfig())
	require.NoError(t, p.Shutdown())

	assert.Equal(t, []string{
		"uci",
		"setoption name Threads value 1",
		"setoption name Hash value 16",
		"isready",
		"ucinewgame",
		"isready",
		"quit",
	}, fake.commands())
}

func TestProcessBestMove(t *testing.T) {
	fake := &fakeEngine{reply: func(string) string { return "e2e4" }}
	conf := testProcessConfig()
	conf.SkillLevel = func(depth int) (int, bool) { return depth * 4, true }
	p := startProcess(t, fake, conf)
	defer p.Shutdown()

	m, err := p.BestMove(context.Background(), 200*time.Millisecond, 2)
	require.NoError(t, err)
	assert.Equal(t, game.Move(game.Sq(5, 2), game.Sq(5, 4)), m)

	cmds := fake.commands()
	assert.Contains(t, cmds, "position fen "+game.StartFEN)
	assert.Contains(t, cmds, "setoption name Skill Level value 8")
	assert.Contains(t, cmds, "go movetime 200")
}

func TestProcessTimeoutSendsStopOnce(t *testing.T) {
	fake := &fakeEngine{}
	p := startProcess(t, fake, testProcessConfig())

	start := time.Now()
	_, err := p.BestMove(context.Background(), 500*time.Millisecond, 0)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, ErrTimeout, errors.Cause(err))
	assert.GreaterOrEqual(t, int64(elapsed), int64(time.Second))
	assert.Contains(t, fake.commands(), "go movetime 500")

	require.NoError(t, p.Shutdown())
	assert.Equal(t, 1, fake.count("stop"))
}

func TestProcessCancelSendsStop(t *testing.T) {
	fake := &fakeEngine{}
	p := startProcess(t, fake, testProcessConfig())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	_, err := p.BestMove(ctx, 5*time.Second, 0)
	assert.Equal(t, context.Canceled, errors.Cause(err))

	require.NoError(t, p.Shutdown())
	assert.Equal(t, 1, fake.count("stop"))
}

func TestProcessBadReplies(t *testing.T) {
	for _, tc := range []struct {
		reply string
		want  error
	}{
		{"(none)", ErrNoMove},
		{"0000", ErrNoMove},
		{"e2e5", ErrIllegalMove},
		{"e2", ErrProtocol},
	} {
		t.Run(tc.reply, func(t *testing.T) {
			reply := tc.reply
			fake := &fakeEngine{reply: func(string) string { return reply }}
			p := startProcess(t, fake, testProcessConfig())
			defer p.Shutdown()

			_, err := p.BestMove(context.Background(), 100*time.Millisecond, 0)
			assert.Equal(t, tc.want, errors.Cause(err))
		})
	}
}

func TestProcessExit(t *testing.T) {
	fake := &fakeEngine{exitOnGo: true}
	p := startProcess(t, fake, testProcessConfig())

	_, err := p.BestMove(context.Background(), 100*time.Millisecond, 0)
	assert.Equal(t, ErrProcessExited, errors.Cause(err))
	assert.Error(t, p.Shutdown(), "quit cannot be delivered to a dead engine")
}

func TestProcessHandshakeTimeout(t *testing.T) {
	fake := &fakeEngine{silent: true}
	conf := testProcessConfig()
	conf.HandshakeTimeout = 100 * time.Millisecond
	p := NewProcess(game.ChessRules(nil), fake, conf)

	err := p.Start()
	require.Error(t, err)
	assert.Equal(t, ErrTimeout, errors.Cause(err))

	_, err = p.BestMove(context.Background(), time.Second, 0)
	assert.Equal(t, ErrNotStarted, errors.Cause(err))
}

func TestProcessRestart(t *testing.T) {
	fake := &fakeEngine{reply: func(string) string { return "g1f3" }}
	p := startProcess(t, fake, testProcessConfig())
	require.NoError(t, p.Shutdown())
	require.NoError(t, p.Shutdown(), "second shutdown is a no-op")

	_, err := p.BestMove(context.Background(), 100*time.Millisecond, 0)
	assert.Equal(t, ErrNotStarted, errors.Cause(err))

	require.NoError(t, p.Start())
	m, err := p.BestMove(context.Background(), 100*time.Millisecond, 0)
	require.NoError(t, err)
	assert.Equal(t, "g1f3", m.String())
	assert.Equal(t, 2, fake.spawns)
	require.NoError(t, p.Shutdown())
}

type failingSpawner struct{}

func (failingSpawner) Spawn() (Pipe, error) { return Pipe{}, errors.New("no such file") }

func TestProcessSpawnFailure(t *testing.T) {
	p := NewProcess(game.ChessRules(nil), failingSpawner{}, testProcessConfig())
	err := p.Start()
	require.Error(t, err)
	var op *OpError
	require.True(t, errors.As(err, &op))
	assert.Equal(t, "spawn", op.Op)
}
