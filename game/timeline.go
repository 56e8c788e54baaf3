package game

// HalfMove records one committed move and the verdict on the position it produced.
type HalfMove struct {
	Move   Movement
	Status Status
}

// Timeline is the history of a game: the starting position followed by one position per
// committed half-move.
type Timeline struct {
	positions []Snapshot
	moves     []HalfMove
}

// NewTimeline starts a history at start.
func NewTimeline(start Snapshot) *Timeline {
	return &Timeline{positions: []Snapshot{start}}
}

// Snapshot returns a copy of the current position.
func (t *Timeline) Snapshot() Snapshot { return t.positions[len(t.positions)-1] }

// Start returns the position the game started from.
func (t *Timeline) Start() Snapshot { return t.positions[0] }

// Push commits a move and the position it produced.
func (t *Timeline) Push(m Movement, next Snapshot, status Status) {
	t.positions = append(t.positions, next)
	t.moves = append(t.moves, HalfMove{Move: m, Status: status})
}

// HalfMoves is the number of committed half-moves.
func (t *Timeline) HalfMoves() int { return len(t.moves) }

// Last returns the latest half-move.
func (t *Timeline) Last() (HalfMove, bool) {
	if len(t.moves) == 0 {
		return HalfMove{}, false
	}
	return t.moves[len(t.moves)-1], true
}

// Moves returns a copy of the committed half-moves.
func (t *Timeline) Moves() []HalfMove {
	retVal := make([]HalfMove, len(t.moves))
	copy(retVal, t.moves)
	return retVal
}

// ResetTo truncates the history so that n half-moves remain. It reports false when n is out of range.
func (t *Timeline) ResetTo(n int) bool {
	if n < 0 || n > len(t.moves) {
		return false
	}
	t.positions = t.positions[:n+1]
	t.moves = t.moves[:n]
	return true
}

// Ended reports whether the last committed move finished the game.
func (t *Timeline) Ended() bool {
	last, ok := t.Last()
	return ok && last.Status.Terminal()
}
