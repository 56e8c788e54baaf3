package game

// Snapshot is an independent copy of everything a search needs: board, side to move,
// castling rights, en passant target and the move clocks. It contains no pointers, so
// copying a Snapshot never aliases the live game.
type Snapshot struct {
	Board     Board
	Turn      Side
	Castling  Castling
	EnPassant Square // zero value when there is no en passant target
	HalfMoves int    // half-move clock for the fifty move rule
	FullMove  int
}

var backRow = [ColNum]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StartingSnapshot returns the standard initial position.
func StartingSnapshot() Snapshot {
	var s Snapshot
	for f := 1; f <= ColNum; f++ {
		s.Board.Set(Sq(f, 1), Piece{backRow[f-1], White})
		s.Board.Set(Sq(f, 2), Piece{Pawn, White})
		s.Board.Set(Sq(f, 7), Piece{Pawn, Black})
		s.Board.Set(Sq(f, 8), Piece{backRow[f-1], Black})
	}
	s.Turn = White
	s.Castling = AllCastling
	s.FullMove = 1
	return s
}

// Snapshot returns s itself, so that a Snapshot is a View.
func (s Snapshot) Snapshot() Snapshot { return s }

// Apply returns the position after m. The receiver is left untouched.
//
// Apply trusts m to be legal; it only performs the relocation and the special-move
// side effects. A promotion without an elected piece promotes to a queen.
func (s Snapshot) Apply(m Movement) Snapshot {
	next := s
	moving := next.Board.At(m.Start)
	captured := next.Board.At(m.End)

	next.Board.Set(m.Start, NoPiece)
	next.Board.Set(m.End, moving)

	switch m.Kind {
	case Castle:
		rook := next.Board.At(m.RookSquare)
		next.Board.Set(m.RookSquare, NoPiece)
		next.Board.Set(m.RookEnd, rook)
	case EnPassant:
		captured = next.Board.At(m.Captured)
		next.Board.Set(m.Captured, NoPiece)
	case Promotion:
		elected := m.Elected
		if elected == NoKind {
			elected = Queen
		}
		next.Board.Set(m.End, Piece{elected, moving.Side})
	}

	next.EnPassant = Square{}
	if moving.Kind == Pawn && abs8(m.End.Rank-m.Start.Rank) == 2 {
		next.EnPassant = Square{File: m.Start.File, Rank: (m.Start.Rank + m.End.Rank) / 2}
	}

	next.Castling &^= castlingLost(m.Start) | castlingLost(m.End)

	if moving.Kind == Pawn || !captured.Empty() {
		next.HalfMoves = 0
	} else {
		next.HalfMoves++
	}
	if s.Turn == Black {
		next.FullMove++
	}
	next.Turn = s.Turn.Opposite()
	return next
}

// castlingLost is the set of rights forfeited when a piece leaves or lands on sq.
func castlingLost(sq Square) Castling {
	switch sq {
	case Sq(5, 1):
		return WhiteKingSide | WhiteQueenSide
	case Sq(8, 1):
		return WhiteKingSide
	case Sq(1, 1):
		return WhiteQueenSide
	case Sq(5, 8):
		return BlackKingSide | BlackQueenSide
	case Sq(8, 8):
		return BlackKingSide
	case Sq(1, 8):
		return BlackQueenSide
	}
	return NoCastling
}

// PassTurn returns s with the other side to move and no en passant target. It is used to
// count the opponent's mobility; the result is not necessarily a reachable position.
func (s Snapshot) PassTurn() Snapshot {
	s.Turn = s.Turn.Opposite()
	s.EnPassant = Square{}
	return s
}

func abs8(a int8) int8 {
	if a < 0 {
		return -a
	}
	return a
}
