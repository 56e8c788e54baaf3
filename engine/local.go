package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/knightline/game"
	"github.com/knightline/search"
	"github.com/pkg/errors"
)

const (
	minThink = 100 * time.Millisecond
	maxThink = 500 * time.Millisecond
)

// LocalConfig configures the in-process client.
type LocalConfig struct {
	Search search.Config `json:"search"`

	// PerLevelDelay is added to the simulated thinking time for every ply of requested depth.
	// Zero disables the artificial delay entirely.
	PerLevelDelay time.Duration `json:"per_level_delay"`

	Logger *log.Logger `json:"-"`
}

func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Search:        search.DefaultConfig(),
		PerLevelDelay: 200 * time.Millisecond,
	}
}

func (c LocalConfig) IsValid() bool { return c.Search.IsValid() && c.PerLevelDelay >= 0 }

// Local runs the search in process. A depth below 1 asks for a random legal move.
type Local struct {
	sync.Mutex
	conf   LocalConfig
	rules  game.Rules
	logger *log.Logger

	searcher *search.Searcher
	view     game.View
}

func NewLocal(rules game.Rules, conf LocalConfig) *Local {
	if !conf.IsValid() {
		panic("local engine config is not valid")
	}
	return &Local{conf: conf, rules: rules, logger: orDiscard(conf.Logger)}
}

func (l *Local) Start() error {
	l.Lock()
	defer l.Unlock()
	if l.searcher == nil {
		l.searcher = search.New(l.rules, l.conf.Search)
	}
	return nil
}

func (l *Local) Shutdown() error {
	l.Lock()
	l.searcher = nil
	l.Unlock()
	return nil
}

func (l *Local) SetupNewGame(ctx context.Context, view game.View) error {
	l.Lock()
	defer l.Unlock()
	if l.searcher == nil {
		return ErrNotStarted
	}
	l.view = view
	return nil
}

func (l *Local) BestMove(ctx context.Context, budget time.Duration, depth int) (game.Movement, error) {
	l.Lock()
	searcher, view := l.searcher, l.view
	l.Unlock()
	if searcher == nil {
		return game.Movement{}, ErrNotStarted
	}
	if view == nil {
		return game.Movement{}, errors.Wrap(ErrNotStarted, "no game set up")
	}
	pos := view.Snapshot()

	if l.conf.PerLevelDelay > 0 {
		delay := thinkDelay(budget, depth, l.conf.PerLevelDelay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return game.Movement{}, ctx.Err()
		}
	}

	var m game.Movement
	var ok bool
	if depth < 1 {
		m, ok = searcher.Random(pos)
	} else {
		m, ok = searcher.BestMove(pos, depth)
	}
	if !ok {
		return game.Movement{}, ErrNoMove
	}
	l.logger.Printf("depth %d: %v", depth, m)
	return m, nil
}

// LastTrace returns the DOT rendering of the last search when tracing is enabled.
func (l *Local) LastTrace() string {
	l.Lock()
	searcher := l.searcher
	l.Unlock()
	if searcher == nil {
		return ""
	}
	return searcher.LastTrace()
}

// thinkDelay is the simulated thinking time: the budget clamped to [100ms, 500ms] plus a step per ply.
func thinkDelay(budget time.Duration, depth int, perLevel time.Duration) time.Duration {
	d := budget
	if d < minThink {
		d = minThink
	}
	if d > maxThink {
		d = maxThink
	}
	if depth > 0 {
		d += time.Duration(depth) * perLevel
	}
	return d
}
