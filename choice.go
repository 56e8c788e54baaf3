package knightline

import (
	"context"
	"sync"

	"github.com/knightline/game"
)

// PromotionChoice is a single-slot completion for the piece a human promotes to. Whichever of
// Fulfill and Cancel happens first wins; every later call is a no-op.
type PromotionChoice struct {
	once      sync.Once
	done      chan struct{}
	kind      game.Kind
	cancelled bool
}

func newPromotionChoice() *PromotionChoice {
	return &PromotionChoice{done: make(chan struct{})}
}

// Fulfill completes the choice with k. It reports whether k was accepted.
func (c *PromotionChoice) Fulfill(k game.Kind) bool {
	if !k.Promotable() {
		return false
	}
	var won bool
	c.once.Do(func() {
		c.kind = k
		won = true
		close(c.done)
	})
	return won
}

// Cancel invalidates the choice. It reports whether the choice was still open.
func (c *PromotionChoice) Cancel() bool {
	var won bool
	c.once.Do(func() {
		c.cancelled = true
		won = true
		close(c.done)
	})
	return won
}

// Wait blocks until the choice is fulfilled or cancelled, or ctx is done.
func (c *PromotionChoice) Wait(ctx context.Context) (game.Kind, error) {
	select {
	case <-c.done:
		if c.cancelled {
			return game.NoKind, ErrChoiceCancelled
		}
		return c.kind, nil
	case <-ctx.Done():
		return game.NoKind, ctx.Err()
	}
}
