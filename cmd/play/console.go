package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/knightline"
	"github.com/knightline/game"
)

// console is a line-oriented UI. Moves are typed in UCI notation.
type console struct {
	sync.Mutex
	w           io.Writer
	interactive bool
}

func newConsole(w io.Writer) *console { return &console{w: w} }

func (c *console) printf(format string, args ...interface{}) {
	c.Lock()
	fmt.Fprintf(c.w, format, args...)
	c.Unlock()
}

func (c *console) board(s game.Snapshot) {
	c.printf("%v%v to move\n", s.Board.String(), s.Turn)
}

func (c *console) Notify(n knightline.Notification) {
	switch n.Event {
	case knightline.MoveExecuted:
		c.printf("%d. %v", n.HalfMove, n.Move)
		if n.Status != game.Ongoing {
			c.printf(" (%v)", n.Status)
		}
		c.printf("\n")
	case knightline.GameEnded:
		c.printf("game over: %v\n", n.Status)
	case knightline.ResetToHalfMove:
		c.printf("reset to half-move %d\n", n.HalfMove)
	case knightline.EngineUnavailable:
		c.printf("engine unavailable: %v\n", n.Err)
	default:
		c.printf("%v\n", n.Event)
	}
}

func (c *console) SetInteractive(on bool) {
	c.Lock()
	changed := c.interactive != on
	c.interactive = on
	c.Unlock()
	if changed && on {
		c.printf("your move\n")
	}
}

func (c *console) ShowPromotionChoice(side game.Side) {
	c.printf("%v promotes: q, r, b or n?\n", side)
}
