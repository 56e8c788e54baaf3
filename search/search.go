package search

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/knightline/game"
)

/*
Minimax with alpha-beta pruning over immutable snapshots.

Every node asks the rules engine for the legal moves of the side to move, plays each one on a copy of the
snapshot and recurses with the other side. Scores are always from the point of view of the side that
asked for the move (the root side): the root side maximizes, the opponent minimizes.
*/

// MateScore is the magnitude of a checkmate score. Mates found closer to the root score higher.
const MateScore float32 = 1e6

// Result is the outcome of a search.
type Result struct {
	Move  game.Movement
	Score float32
	Nodes int
	Found bool // false when the side to move has no legal move
}

// Searcher picks moves. It only reads the snapshots it is given.
type Searcher struct {
	sync.Mutex
	Config
	rules  game.Rules
	rand   *rand.Rand
	logger *log.Logger

	nodes int
	trace *Trace
	last  *Trace
}

// New creates a Searcher. It panics on an invalid config, like the other constructors of this module.
func New(rules game.Rules, conf Config) *Searcher {
	if !conf.IsValid() {
		panic("search config is not valid")
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := conf.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Searcher{
		Config: conf,
		rules:  rules,
		rand:   rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Choose picks a move for the side to move at the given difficulty. Easy picks a uniformly
// random legal move without searching.
func (s *Searcher) Choose(pos game.Snapshot, d Difficulty) (game.Movement, bool) {
	if d == Easy {
		return s.Random(pos)
	}
	return s.BestMove(pos, s.Depth(d))
}

// Random returns a uniformly random legal move.
func (s *Searcher) Random(pos game.Snapshot) (game.Movement, bool) {
	moves := s.rules.AllLegalMoves(pos)
	if len(moves) == 0 {
		return game.Movement{}, false
	}
	s.Lock()
	i := s.rand.Intn(len(moves))
	s.Unlock()
	return moves[i], true
}

// BestMove searches depth plies for the side to move in pos. It reports false, never an error,
// when there is no legal move.
func (s *Searcher) BestMove(pos game.Snapshot, depth int) (game.Movement, bool) {
	res := s.Search(pos, depth)
	return res.Move, res.Found
}

// Search runs the minimax search and returns the full result. Ties go to the first move in
// rules order, so results are deterministic.
func (s *Searcher) Search(pos game.Snapshot, depth int) Result {
	s.Lock()
	defer s.Unlock()

	if depth < 1 {
		depth = 1
	}
	s.nodes = 1
	if s.Trace {
		s.trace = newTrace(s.MaxTrace)
	}

	root := pos.Turn
	moves := s.rules.AllLegalMoves(pos)
	if len(moves) == 0 {
		s.logger.Printf("no legal moves for %v", root)
		s.finishTrace()
		return Result{Nodes: s.nodes}
	}

	rootID := s.trace.node()
	best := Result{Score: math32.Inf(-1), Found: true}
	alpha, beta := math32.Inf(-1), math32.Inf(1)
	for _, m := range moves {
		child := s.rules.Apply(pos, autoQueen(m))
		id := s.trace.node()
		score := s.alphaBeta(child, depth-1, 1, alpha, beta, root, id)
		s.trace.edge(rootID, id, m, score)
		if score > best.Score {
			best.Score = score
			best.Move = m
		}
		if score > alpha {
			alpha = score
		}
	}
	s.trace.label(rootID, fmt.Sprintf("%v %.2f", root, best.Score))
	best.Nodes = s.nodes
	s.finishTrace()

	s.logger.Printf("depth %d: best %v score %.2f nodes %d", depth, best.Move, best.Score, best.Nodes)
	return best
}

func (s *Searcher) alphaBeta(pos game.Snapshot, depth, ply int, alpha, beta float32, root game.Side, id string) float32 {
	s.nodes++
	moves := s.rules.AllLegalMoves(pos)
	if len(moves) == 0 {
		return s.terminal(pos, ply, root)
	}
	if depth == 0 {
		return evaluate(s.rules, pos, root, len(moves))
	}

	maximizing := pos.Turn == root
	best := math32.Inf(1)
	if maximizing {
		best = math32.Inf(-1)
	}
	for _, m := range moves {
		child := s.rules.Apply(pos, autoQueen(m))
		childID := s.trace.node()
		score := s.alphaBeta(child, depth-1, ply+1, alpha, beta, root, childID)
		s.trace.edge(id, childID, m, score)

		if maximizing {
			if score > best {
				best = score
			}
			if best > alpha {
				alpha = best
			}
		} else {
			if score < best {
				best = score
			}
			if best < beta {
				beta = best
			}
		}
		if s.Pruning && beta <= alpha {
			break
		}
	}
	return best
}

// terminal scores a position without legal moves: a mate is a loss for the side to move,
// anything else the rules call it is a draw.
func (s *Searcher) terminal(pos game.Snapshot, ply int, root game.Side) float32 {
	if s.rules.Status(pos) != game.Checkmate {
		return 0
	}
	score := MateScore - float32(ply)
	if pos.Turn == root {
		return -score
	}
	return score
}

// LastTrace returns the DOT rendering of the last traced search, or "" if tracing is off.
func (s *Searcher) LastTrace() string {
	s.Lock()
	defer s.Unlock()
	if s.last == nil {
		return ""
	}
	return s.last.String()
}

func (s *Searcher) finishTrace() {
	if s.trace != nil {
		s.last = s.trace
		s.trace = nil
	}
}

// autoQueen completes an unelected promotion with a queen. The search does not consider underpromotions.
func autoQueen(m game.Movement) game.Movement {
	if m.NeedsElection() {
		m.Elected = game.Queen
	}
	return m
}
