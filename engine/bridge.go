package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/knightline/game"
	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"github.com/pkg/errors"
)

// Bridge is a platform-native engine binding with a synchronous call contract.
type Bridge interface {
	// Init loads the engine and returns its name.
	Init() (string, error)
	// BestMove returns a coordinate move such as "e2e4" or "e7e8q".
	BestMove(fen string, depth int, budget time.Duration) (string, error)
	Close() error
}

// BridgeClient adapts a Bridge to Client. Bridge errors and panics surface as request failures.
type BridgeClient struct {
	sync.Mutex
	bridge Bridge
	rules  game.Rules
	logger *log.Logger

	started bool
	view    game.View
	busy    chan struct{} // held while a bridge call runs, abandoned calls included
}

func NewBridgeClient(bridge Bridge, rules game.Rules, logger *log.Logger) *BridgeClient {
	return &BridgeClient{bridge: bridge, rules: rules, logger: orDiscard(logger), busy: make(chan struct{}, 1)}
}

func (c *BridgeClient) Start() error {
	c.Lock()
	defer c.Unlock()
	if c.started {
		return nil
	}
	var name string
	err := guard("init", func() (err error) {
		name, err = c.bridge.Init()
		return err
	})
	if err != nil {
		return err
	}
	c.logger.Printf("bridge engine %q ready", name)
	c.started = true
	return nil
}

func (c *BridgeClient) Shutdown() error {
	c.Lock()
	defer c.Unlock()
	if !c.started {
		return nil
	}
	c.started = false
	c.busy <- struct{}{}
	defer func() { <-c.busy }()
	return guard("close", c.bridge.Close)
}

func (c *BridgeClient) SetupNewGame(ctx context.Context, view game.View) error {
	c.Lock()
	defer c.Unlock()
	if !c.started {
		return ErrNotStarted
	}
	c.view = view
	return nil
}

type bridgeReply struct {
	text string
	err  error
}

// BestMove runs the synchronous bridge call in its own goroutine so that ctx can abandon it.
// An abandoned call still runs to completion and its reply is dropped. The bridge never sees two
// calls at once: later requests, and Shutdown, wait for it.
func (c *BridgeClient) BestMove(ctx context.Context, budget time.Duration, depth int) (game.Movement, error) {
	c.Lock()
	defer c.Unlock()
	if !c.started {
		return game.Movement{}, ErrNotStarted
	}
	if c.view == nil {
		return game.Movement{}, errors.Wrap(ErrNotStarted, "no game set up")
	}
	pos := c.view.Snapshot()
	fen := game.EncodeFEN(pos)

	select {
	case c.busy <- struct{}{}:
	case <-ctx.Done():
		return game.Movement{}, ctx.Err()
	}
	reply := make(chan bridgeReply, 1)
	go func() {
		defer func() { <-c.busy }()
		var r bridgeReply
		r.err = guard("bestmove", func() (err error) {
			r.text, err = c.bridge.BestMove(fen, depth, budget)
			return err
		})
		reply <- r
	}()

	var r bridgeReply
	select {
	case r = <-reply:
	case <-ctx.Done():
		return game.Movement{}, ctx.Err()
	}
	if r.err != nil {
		c.logger.Printf("bestmove: %v", r.err)
		return game.Movement{}, r.err
	}
	if r.text == "" || r.text == "0000" || r.text == "(none)" {
		return game.Movement{}, ErrNoMove
	}
	m, err := game.DecodeUCI(c.rules, pos, r.text)
	if err != nil {
		return game.Movement{}, errors.Wrap(ErrIllegalMove, err.Error())
	}
	return m, nil
}

// guard runs f, converting a panic into an error.
func guard(op string, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &OpError{Op: op, Err: errors.Errorf("bridge panic: %v", r)}
		}
	}()
	if err = f(); err != nil {
		return &OpError{Op: op, Err: err}
	}
	return nil
}

// UCIBridge is a Bridge over the notnil/chess UCI driver.
type UCIBridge struct {
	Path    string
	Options []Option

	eng *uci.Engine
}

func (b *UCIBridge) Init() (string, error) {
	eng, err := uci.New(b.Path)
	if err != nil {
		return "", err
	}
	cmds := []uci.Cmd{uci.CmdUCI}
	for _, o := range b.Options {
		cmds = append(cmds, uci.CmdSetOption{Name: o.Name, Value: o.Value})
	}
	cmds = append(cmds, uci.CmdIsReady, uci.CmdUCINewGame)
	if err := eng.Run(cmds...); err != nil {
		eng.Close()
		return "", err
	}
	b.eng = eng
	return b.Path, nil
}

func (b *UCIBridge) BestMove(fen string, depth int, budget time.Duration) (string, error) {
	if b.eng == nil {
		return "", ErrNotStarted
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return "", errors.Wrap(err, "bad position")
	}
	pos := chess.NewGame(opt).Position()
	if err := b.eng.Run(uci.CmdPosition{Position: pos}, uci.CmdGo{Depth: depth, MoveTime: budget}); err != nil {
		return "", err
	}
	best := b.eng.SearchResults().BestMove
	if best == nil {
		return "", nil
	}
	return best.String(), nil
}

func (b *UCIBridge) Close() error {
	if b.eng == nil {
		return nil
	}
	err := b.eng.Close()
	b.eng = nil
	return err
}
