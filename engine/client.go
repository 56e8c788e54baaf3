// Package engine provides the interchangeable move producers of a game: an in-process search,
// an external UCI process, a synchronous native bridge, and the controller that falls back from
// one to another when the preferred producer keeps failing.
package engine

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/knightline/game"
)

// Client is anything that can think of a move.
//
// Every client is restartable: Shutdown followed by Start leaves it usable. A client only reads
// the position through the View it was given in SetupNewGame; it never mutates a game.
type Client interface {
	Start() error
	Shutdown() error

	// SetupNewGame tells the client which game it is playing. The view is read at every request.
	SetupNewGame(ctx context.Context, view game.View) error

	// BestMove asks for a move in the current position of the view. Depth is a hint; a client
	// may ignore it. A client that finds nothing reports ErrNoMove.
	BestMove(ctx context.Context, budget time.Duration, depth int) (game.Movement, error)
}

// Option is a UCI engine option sent with setoption.
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard, "", 0)
	}
	return l
}
