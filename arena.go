package knightline

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/knightline/game"
	"github.com/pkg/errors"
)

// ArenaConfig configures engine-vs-engine matches.
type ArenaConfig struct {
	ThinkTime time.Duration `json:"think_time"`
	Depth     int           `json:"depth"`
	MaxPlies  int           `json:"max_plies"` // longer games are adjudicated as draws
	StartFEN  string        `json:"start_fen"`
	Logger    *log.Logger   `json:"-"`
}

func DefaultArenaConfig() ArenaConfig {
	return ArenaConfig{
		ThinkTime: MinThinkTime,
		Depth:     2,
		MaxPlies:  200,
		StartFEN:  game.StartFEN,
	}
}

func (c ArenaConfig) IsValid() bool {
	return c.ThinkTime > 0 && c.Depth >= 0 && c.MaxPlies >= 1 && c.StartFEN != ""
}

// Outcome is the result of one arena game. Winner is nil for a draw.
type Outcome struct {
	White, Black *Agent
	Winner       *Agent
	Plies        int
	Reason       string
}

// Arena plays games between two agents, alternating colours. A plays White in the first game.
type Arena struct {
	rules  game.Rules
	A, B   *Agent
	conf   ArenaConfig
	logger *log.Logger

	timeline   *game.Timeline
	gameNumber int
}

func NewArena(rules game.Rules, a, b *Agent, conf ArenaConfig) *Arena {
	if !conf.IsValid() {
		panic("arena config is not valid")
	}
	logger := conf.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Arena{rules: rules, A: a, B: b, conf: conf, logger: logger}
}

// Start starts both agents' engines.
func (ar *Arena) Start() error {
	var errs error
	for _, a := range []*Agent{ar.A, ar.B} {
		if err := a.Client.Start(); err != nil {
			errs = multierror.Append(errs, errors.WithMessage(err, a.name))
		}
	}
	return errs
}

// Close shuts both agents down.
func (ar *Arena) Close() error {
	var errs error
	for _, a := range []*Agent{ar.A, ar.B} {
		if err := a.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

// GameNumber is the number of games played so far.
func (ar *Arena) GameNumber() int { return ar.gameNumber }

// Reset clears both agents' statistics and starts the colour rotation over.
func (ar *Arena) Reset() {
	ar.A.resetStats()
	ar.B.resetStats()
	ar.gameNumber = 0
	ar.timeline = nil
}

// Play plays one game and records the result in both agents' statistics. An engine that fails
// or answers with an illegal move forfeits.
func (ar *Arena) Play(ctx context.Context) (Outcome, error) {
	start, err := game.DecodeFEN(ar.conf.StartFEN)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{White: ar.A, Black: ar.B}
	if ar.gameNumber%2 == 1 {
		out.White, out.Black = ar.B, ar.A
	}
	ar.timeline = game.NewTimeline(start)
	for _, a := range []*Agent{out.White, out.Black} {
		if err := a.Client.SetupNewGame(ctx, ar.timeline); err != nil {
			return Outcome{}, errors.WithMessage(err, a.name)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		pos := ar.timeline.Snapshot()
		mover, other := out.White, out.Black
		if pos.Turn == game.Black {
			mover, other = other, mover
		}

		status := ar.rules.Status(pos)
		if status == game.Checkmate {
			out.Winner, out.Reason = other, "checkmate"
			break
		}
		if status == game.Stalemate {
			out.Reason = "stalemate"
			break
		}
		if out.Plies >= ar.conf.MaxPlies {
			out.Reason = "move limit"
			break
		}

		m, err := mover.Search(ctx, ar.conf.ThinkTime, ar.conf.Depth)
		if err == nil {
			m, err = ar.legal(pos, m)
		}
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			ar.logger.Printf("%s forfeits: %v", mover.name, err)
			out.Winner, out.Reason = other, "forfeit"
			break
		}

		next := ar.rules.Apply(pos, m)
		ar.timeline.Push(m, next, ar.rules.Status(next))
		out.Plies++
	}

	ar.record(out)
	ar.gameNumber++
	ar.logger.Printf("game %d: %s (White) vs %s (Black): %s after %d plies",
		ar.gameNumber, out.White.name, out.Black.name, out.Reason, out.Plies)
	return out, nil
}

// legal matches an engine move against the legal moves. Unelected promotions become queens.
func (ar *Arena) legal(pos game.Snapshot, m game.Movement) (game.Movement, error) {
	for _, l := range ar.rules.LegalMoves(pos, m.Start) {
		if !l.Same(m) {
			continue
		}
		switch {
		case m.Elected != game.NoKind:
			l.Elected = m.Elected
		case l.NeedsElection():
			l.Elected = game.Queen
		}
		return l, nil
	}
	return game.Movement{}, errors.Wrapf(ErrIllegalMove, "%v in %s", m, game.EncodeFEN(pos))
}

func (ar *Arena) record(out Outcome) {
	switch {
	case out.Winner == nil:
		for _, a := range []*Agent{out.White, out.Black} {
			a.Lock()
			a.Draw++
			a.Unlock()
		}
	default:
		loser := out.White
		if out.Winner == out.White {
			loser = out.Black
		}
		out.Winner.Lock()
		out.Winner.Wins++
		out.Winner.Unlock()
		loser.Lock()
		loser.Loss++
		loser.Unlock()
	}
}

// Log writes the moves of the last game and both agents' statistics into w.
func (ar *Arena) Log(w io.Writer) {
	if ar.timeline != nil {
		for i, hm := range ar.timeline.Moves() {
			if i%2 == 0 {
				fmt.Fprintf(w, "%d.", i/2+1)
			}
			fmt.Fprintf(w, " %v", hm.Move)
			if i%2 == 1 {
				fmt.Fprintln(w)
			}
		}
		fmt.Fprintln(w)
	}
	for _, a := range []*Agent{ar.A, ar.B} {
		mean, std := a.ThinkTime()
		a.Lock()
		fmt.Fprintf(w, "%s: %v wins, %v losses, %v draws; %.3fs ± %.3fs per move\n", a.name, a.Wins, a.Loss, a.Draw, mean, std)
		a.Unlock()
	}
}
