package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/knightline/game"
	"github.com/pkg/errors"
)

// Variant names one of the two clients a Fallback switches between.
type Variant int

const (
	Primary Variant = iota
	Secondary
)

func (v Variant) String() string {
	switch v {
	case Primary:
		return "Primary"
	case Secondary:
		return "Secondary"
	}
	return "UNKNOWN VARIANT"
}

// Factory builds a fresh, not yet started client.
type Factory func() (Client, error)

type FallbackConfig struct {
	// Threshold is the number of consecutive primary failures that demote to the secondary.
	Threshold int         `json:"threshold"`
	Logger    *log.Logger `json:"-"`
}

func DefaultFallbackConfig() FallbackConfig { return FallbackConfig{Threshold: 2} }

func (c FallbackConfig) IsValid() bool { return c.Threshold >= 1 }

// Fallback drives a primary client and demotes to a secondary one after repeated failures.
//
// A failed request on the primary counts once against the threshold. Below the threshold the
// primary is rebuilt and the request is retried once. At the threshold the controller switches
// to the secondary, clears the count and retries once there. A failing secondary is retried once
// and then reported as ErrNoEngine.
type Fallback struct {
	sync.Mutex
	conf      FallbackConfig
	factories [2]Factory
	logger    *log.Logger

	active   Client
	variant  Variant
	errCount int
	view     game.View
}

func NewFallback(primary, secondary Factory, conf FallbackConfig) *Fallback {
	if !conf.IsValid() {
		panic("fallback config is not valid")
	}
	return &Fallback{
		conf:      conf,
		factories: [2]Factory{primary, secondary},
		logger:    orDiscard(conf.Logger),
	}
}

// Start brings up the primary, or the secondary if the primary cannot start.
func (f *Fallback) Start() error {
	f.Lock()
	defer f.Unlock()
	ctx := context.Background()

	perr := f.activate(ctx, Primary)
	if perr == nil {
		return nil
	}
	f.logger.Printf("primary unavailable: %v", perr)
	if serr := f.activate(ctx, Secondary); serr != nil {
		return errors.Wrap(ErrNoEngine, multierror.Append(perr, serr).Error())
	}
	return nil
}

func (f *Fallback) Shutdown() error {
	f.Lock()
	defer f.Unlock()
	return f.release()
}

func (f *Fallback) release() error {
	if f.active == nil {
		return nil
	}
	err := f.active.Shutdown()
	f.active = nil
	return err
}

// activate replaces the active client with a fresh one of variant v. The old client is shut
// down first. On failure no client is active.
func (f *Fallback) activate(ctx context.Context, v Variant) error {
	if err := f.release(); err != nil {
		f.logger.Printf("shutting down %v: %v", f.variant, err)
	}
	f.variant = v

	c, err := f.factories[v]()
	if err != nil {
		return errors.Wrapf(err, "building %v", v)
	}
	if err := c.Start(); err != nil {
		return errors.Wrapf(err, "starting %v", v)
	}
	if f.view != nil {
		if err := c.SetupNewGame(ctx, f.view); err != nil {
			if serr := c.Shutdown(); serr != nil {
				f.logger.Printf("shutting down %v: %v", v, serr)
			}
			return errors.Wrapf(err, "setting up %v", v)
		}
	}
	f.active = c
	f.logger.Printf("using %v", v)
	return nil
}

// demote switches to the secondary and clears the error count.
func (f *Fallback) demote(ctx context.Context) error {
	f.errCount = 0
	if err := f.activate(ctx, Secondary); err != nil {
		return errors.Wrap(ErrNoEngine, err.Error())
	}
	return nil
}

func (f *Fallback) SetupNewGame(ctx context.Context, view game.View) error {
	f.Lock()
	defer f.Unlock()
	f.view = view
	if f.active == nil {
		return ErrNoEngine
	}
	err := f.active.SetupNewGame(ctx, view)
	if err == nil || f.variant == Secondary || ctx.Err() != nil {
		return err
	}
	f.logger.Printf("primary failed to set up a game: %v", err)
	return f.demote(ctx)
}

// BestMove asks the active client for a move. A "no move" answer is a failure at this level.
func (f *Fallback) BestMove(ctx context.Context, budget time.Duration, depth int) (game.Movement, error) {
	f.Lock()
	defer f.Unlock()
	if f.active == nil {
		return game.Movement{}, ErrNoEngine
	}

	m, err := f.active.BestMove(ctx, budget, depth)
	if err == nil {
		f.succeeded()
		return m, nil
	}
	if ctx.Err() != nil {
		return game.Movement{}, ctx.Err()
	}
	f.logger.Printf("%v failed: %v", f.variant, err)

	if f.variant == Primary {
		f.errCount++
		if f.errCount >= f.conf.Threshold {
			f.logger.Printf("%d consecutive failures, switching to %v", f.errCount, Secondary)
			if derr := f.demote(ctx); derr != nil {
				return game.Movement{}, derr
			}
		} else if rerr := f.activate(ctx, Primary); rerr != nil {
			f.logger.Printf("reinitializing primary: %v", rerr)
			if derr := f.demote(ctx); derr != nil {
				return game.Movement{}, derr
			}
		}
	}

	m, err = f.active.BestMove(ctx, budget, depth)
	if err == nil {
		f.succeeded()
		return m, nil
	}
	if ctx.Err() != nil {
		return game.Movement{}, ctx.Err()
	}
	f.logger.Printf("retry on %v failed: %v", f.variant, err)
	if f.variant == Secondary {
		return game.Movement{}, errors.Wrap(ErrNoEngine, err.Error())
	}
	return game.Movement{}, err
}

func (f *Fallback) succeeded() {
	if f.variant == Primary {
		f.errCount = 0
	}
}

// ForceSwitch activates v regardless of the error count, which it leaves as it is. When the
// primary cannot be brought up the secondary takes over again and the primary's error is returned.
func (f *Fallback) ForceSwitch(v Variant) error {
	f.Lock()
	defer f.Unlock()
	ctx := context.Background()

	err := f.activate(ctx, v)
	switch {
	case err == nil:
		return nil
	case v == Secondary:
		return errors.Wrap(ErrNoEngine, err.Error())
	}
	f.logger.Printf("switching to %v: %v", v, err)
	if serr := f.activate(ctx, Secondary); serr != nil {
		return errors.Wrap(ErrNoEngine, multierror.Append(err, serr).Error())
	}
	return err
}

// Variant is the active variant.
func (f *Fallback) Variant() Variant {
	f.Lock()
	defer f.Unlock()
	return f.variant
}

// ErrorCount is the number of consecutive primary failures.
func (f *Fallback) ErrorCount() int {
	f.Lock()
	defer f.Unlock()
	return f.errCount
}

func (f *Fallback) Status() string {
	f.Lock()
	defer f.Unlock()
	return fmt.Sprintf("Current: %v, Errors: %d", f.variant, f.errCount)
}
