package game

import "github.com/pkg/errors"

// ErrPromotionSet is returned when a promotion move is completed a second time.
var ErrPromotionSet = errors.New("promotion piece already elected")

// MoveKind tags the special-move variants of a Movement.
type MoveKind uint8

const (
	Normal MoveKind = iota
	Castle
	EnPassant
	Promotion
)

func (k MoveKind) String() string {
	switch k {
	case Normal:
		return "Normal"
	case Castle:
		return "Castling"
	case EnPassant:
		return "EnPassant"
	case Promotion:
		return "Promotion"
	}
	return "UNKNOWN MOVE KIND"
}

// Movement relocates the piece on Start to End. Special moves carry the extra squares
// their side effects need:
//	Castle:    RookSquare -> RookEnd
//	EnPassant: Captured is the pawn removed from the board
//	Promotion: Elected is NoKind until the promotion piece is chosen
type Movement struct {
	Start, End Square
	Kind       MoveKind

	RookSquare Square
	RookEnd    Square
	Captured   Square
	Elected    Kind
}

// Move builds a plain movement.
func Move(start, end Square) Movement { return Movement{Start: start, End: end} }

// CastlingMove builds the king's castling movement for the given side.
func CastlingMove(side Side, kingSide bool) Movement {
	rank := int(side.backRank())
	if kingSide {
		return Movement{Start: Sq(5, rank), End: Sq(7, rank), Kind: Castle, RookSquare: Sq(8, rank), RookEnd: Sq(6, rank)}
	}
	return Movement{Start: Sq(5, rank), End: Sq(3, rank), Kind: Castle, RookSquare: Sq(1, rank), RookEnd: Sq(4, rank)}
}

// EnPassantMove builds an en passant capture. The captured pawn sits beside Start on End's file.
func EnPassantMove(start, end Square) Movement {
	return Movement{Start: start, End: end, Kind: EnPassant, Captured: Square{File: end.File, Rank: start.Rank}}
}

// PromotionMove builds a promotion whose piece is not yet elected.
func PromotionMove(start, end Square) Movement {
	return Movement{Start: start, End: end, Kind: Promotion}
}

// IsSpecial reports whether the move has side effects beyond relocating one piece.
func (m Movement) IsSpecial() bool { return m.Kind != Normal }

// NeedsElection reports whether m is a promotion still waiting for its piece.
func (m Movement) NeedsElection() bool { return m.Kind == Promotion && m.Elected == NoKind }

// Elect completes a promotion. It may only succeed once.
func (m *Movement) Elect(k Kind) error {
	if m.Kind != Promotion {
		return errors.Errorf("%v is not a promotion", m)
	}
	if m.Elected != NoKind {
		return ErrPromotionSet
	}
	if !k.Promotable() {
		return errors.Errorf("cannot promote to %v", k)
	}
	m.Elected = k
	return nil
}

// Same reports whether two movements describe the same relocation, ignoring the elected piece.
func (m Movement) Same(other Movement) bool {
	return m.Start == other.Start && m.End == other.End
}

func (m Movement) String() string { return EncodeUCI(m) }
