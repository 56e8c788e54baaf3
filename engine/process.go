package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/knightline/game"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ProcessConfig configures an external UCI engine.
type ProcessConfig struct {
	Path    string   `json:"path"`
	Args    []string `json:"args"`
	Options []Option `json:"options"`

	HandshakeTimeout time.Duration `json:"handshake_timeout"` // per uciok/readyok exchange
	Grace            time.Duration `json:"grace"`             // added to the move budget before giving up
	QuitTimeout      time.Duration `json:"quit_timeout"`      // wait after quit before killing

	// SkillLevel maps a requested depth to the engine's "Skill Level" option. When nil, or when
	// it reports false, no skill option is sent.
	SkillLevel func(depth int) (int, bool) `json:"-"`

	Logger *log.Logger `json:"-"`
}

func DefaultProcessConfig() ProcessConfig {
	return ProcessConfig{
		Path: "stockfish",
		Options: []Option{
			{Name: "Threads", Value: "1"},
			{Name: "Hash", Value: "16"},
		},
		HandshakeTimeout: 5 * time.Second,
		Grace:            500 * time.Millisecond,
		QuitTimeout:      time.Second,
	}
}

func (c ProcessConfig) IsValid() bool {
	return c.HandshakeTimeout > 0 && c.Grace >= 0 && c.QuitTimeout >= 0
}

// Process talks UCI to an engine over its standard streams. Requests are serialized.
type Process struct {
	sync.Mutex
	conf    ProcessConfig
	rules   game.Rules
	spawner Spawner
	logger  *log.Logger

	pipe    Pipe
	lines   chan string
	done    chan struct{}
	group   *errgroup.Group
	started bool
	view    game.View
}

// NewProcess creates a client for the engine. A nil spawner runs conf.Path.
func NewProcess(rules game.Rules, spawner Spawner, conf ProcessConfig) *Process {
	if !conf.IsValid() {
		panic("process engine config is not valid")
	}
	if spawner == nil {
		spawner = ExecSpawner{Path: conf.Path, Args: conf.Args, Wait: conf.QuitTimeout}
	}
	return &Process{conf: conf, rules: rules, spawner: spawner, logger: orDiscard(conf.Logger)}
}

// Start launches the engine and runs the uci/isready handshake.
func (p *Process) Start() error {
	p.Lock()
	defer p.Unlock()
	if p.started {
		return nil
	}

	pipe, err := p.spawner.Spawn()
	if err != nil {
		return &OpError{Op: "spawn", Err: err}
	}
	p.pipe = pipe
	p.lines = make(chan string, 64)
	p.done = make(chan struct{})
	p.group = new(errgroup.Group)
	p.started = true

	lines, done := p.lines, p.done
	p.group.Go(func() error {
		defer close(lines)
		sc := bufio.NewScanner(pipe.Out)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
			}
		}
		return readErr(sc.Err())
	})
	if pipe.Err != nil {
		p.group.Go(func() error {
			sc := bufio.NewScanner(pipe.Err)
			for sc.Scan() {
				p.logger.Printf("stderr: %s", sc.Text())
			}
			return readErr(sc.Err())
		})
	}

	if err := p.handshake(); err != nil {
		if terr := p.teardown(); terr != nil {
			p.logger.Printf("teardown after failed handshake: %v", terr)
		}
		return &OpError{Op: "handshake", Err: err}
	}
	return nil
}

func (p *Process) handshake() error {
	ctx := context.Background()
	if err := p.send("uci"); err != nil {
		return err
	}
	if _, err := p.await(ctx, p.conf.HandshakeTimeout, prefix("uciok")); err != nil {
		return errors.WithMessage(err, "waiting for uciok")
	}
	for _, o := range p.conf.Options {
		if err := p.send(setOption(o.Name, o.Value)); err != nil {
			return err
		}
	}
	return p.sync(ctx)
}

// sync exchanges isready/readyok, discarding any stale output queued before it.
func (p *Process) sync(ctx context.Context) error {
	if err := p.send("isready"); err != nil {
		return err
	}
	if _, err := p.await(ctx, p.conf.HandshakeTimeout, prefix("readyok")); err != nil {
		return errors.WithMessage(err, "waiting for readyok")
	}
	return nil
}

// Shutdown sends quit and releases the process. The client can be started again afterwards.
func (p *Process) Shutdown() error {
	p.Lock()
	defer p.Unlock()
	if !p.started {
		return nil
	}
	return p.teardown()
}

func (p *Process) teardown() error {
	var errs error
	if err := p.send("quit"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := p.pipe.In.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	close(p.done)
	if p.pipe.Stop != nil {
		if err := p.pipe.Stop(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := p.group.Wait(); err != nil {
		errs = multierror.Append(errs, err)
	}
	p.started = false
	return errs
}

func (p *Process) SetupNewGame(ctx context.Context, view game.View) error {
	p.Lock()
	defer p.Unlock()
	if !p.started {
		return ErrNotStarted
	}
	p.view = view
	if err := p.send("ucinewgame"); err != nil {
		return err
	}
	if err := p.sync(ctx); err != nil {
		return &OpError{Op: "ucinewgame", Err: err}
	}
	return nil
}

// BestMove sends the position and waits for bestmove for at most budget plus the grace margin.
// On timeout or cancellation the engine is told to stop, once, and the request fails.
func (p *Process) BestMove(ctx context.Context, budget time.Duration, depth int) (game.Movement, error) {
	p.Lock()
	defer p.Unlock()
	if !p.started {
		return game.Movement{}, ErrNotStarted
	}
	if p.view == nil {
		return game.Movement{}, errors.Wrap(ErrNotStarted, "no game set up")
	}
	pos := p.view.Snapshot()

	if err := p.sync(ctx); err != nil {
		return game.Movement{}, &OpError{Op: "isready", Err: err}
	}
	if err := p.send("position fen " + game.EncodeFEN(pos)); err != nil {
		return game.Movement{}, err
	}
	if p.conf.SkillLevel != nil {
		if level, ok := p.conf.SkillLevel(depth); ok {
			if err := p.send(setOption("Skill Level", fmt.Sprint(level))); err != nil {
				return game.Movement{}, err
			}
		}
	}
	if err := p.send(fmt.Sprintf("go movetime %d", budget.Milliseconds())); err != nil {
		return game.Movement{}, err
	}

	line, err := p.await(ctx, budget+p.conf.Grace, prefix("bestmove"))
	if err != nil {
		if cause := errors.Cause(err); cause == ErrTimeout || cause == context.Canceled || cause == context.DeadlineExceeded {
			if serr := p.send("stop"); serr != nil {
				p.logger.Printf("stop: %v", serr)
			}
		}
		return game.Movement{}, &OpError{Op: "bestmove", Err: err}
	}
	return p.parseBestMove(pos, line)
}

func (p *Process) parseBestMove(pos game.Snapshot, line string) (game.Movement, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return game.Movement{}, errors.Wrapf(ErrProtocol, "%q", line)
	}
	text := fields[1]
	switch {
	case text == "(none)" || text == "0000":
		return game.Movement{}, ErrNoMove
	case len(text) != 4 && len(text) != 5:
		return game.Movement{}, errors.Wrapf(ErrProtocol, "%q", line)
	}
	m, err := game.DecodeUCI(p.rules, pos, text)
	if err != nil {
		return game.Movement{}, errors.Wrap(ErrIllegalMove, err.Error())
	}
	return m, nil
}

func (p *Process) send(cmd string) error {
	p.logger.Printf("> %s", cmd)
	if _, err := io.WriteString(p.pipe.In, cmd+"\n"); err != nil {
		return &OpError{Op: "write", Err: err}
	}
	return nil
}

// await reads lines until one matches, skipping everything else.
func (p *Process) await(ctx context.Context, timeout time.Duration, match func(string) bool) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return "", ErrProcessExited
			}
			p.logger.Printf("< %s", line)
			if match(line) {
				return line, nil
			}
		case <-timer.C:
			return "", errors.Wrapf(ErrTimeout, "after %v", timeout)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// readErr drops the error of reading a stream the process already closed on exit.
func readErr(err error) error {
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

func prefix(word string) func(string) bool {
	return func(line string) bool {
		fields := strings.Fields(line)
		return len(fields) > 0 && fields[0] == word
	}
}

func setOption(name, value string) string {
	return fmt.Sprintf("setoption name %s value %s", name, value)
}
