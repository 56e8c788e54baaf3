package knightline

import (
	"context"
	"sync"
	"time"

	"github.com/knightline/engine"
	"github.com/knightline/game"
	"gonum.org/v1/gonum/stat"
)

// An Agent is an engine taking part in an Arena.
type Agent struct {
	Client engine.Client

	// Statistics
	Wins float32
	Loss float32
	Draw float32
	sync.Mutex

	name       string
	thinkTimes []float64 // seconds per move
}

func NewAgent(name string, c engine.Client) *Agent {
	return &Agent{Client: c, name: name}
}

func (a *Agent) Name() string { return a.name }

// Search asks the agent's engine for a move and records how long it took.
func (a *Agent) Search(ctx context.Context, budget time.Duration, depth int) (game.Movement, error) {
	start := time.Now()
	m, err := a.Client.BestMove(ctx, budget, depth)
	a.Lock()
	a.thinkTimes = append(a.thinkTimes, time.Since(start).Seconds())
	a.Unlock()
	return m, err
}

// ThinkTime returns the mean and standard deviation of the agent's time per move, in seconds.
func (a *Agent) ThinkTime() (mean, std float64) {
	a.Lock()
	defer a.Unlock()
	switch len(a.thinkTimes) {
	case 0:
		return 0, 0
	case 1:
		return a.thinkTimes[0], 0
	}
	return stat.MeanStdDev(a.thinkTimes, nil)
}

// Moves is the number of moves the agent was asked for.
func (a *Agent) Moves() int {
	a.Lock()
	defer a.Unlock()
	return len(a.thinkTimes)
}

func (a *Agent) Close() error { return a.Client.Shutdown() }

func (a *Agent) resetStats() {
	a.Lock()
	a.Wins = 0
	a.Loss = 0
	a.Draw = 0
	a.thinkTimes = a.thinkTimes[:0]
	a.Unlock()
}
