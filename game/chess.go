package game

import (
	"log"
	"sort"

	"github.com/notnil/chess"
)

// Rules is the authority on legality. The orchestration core never decides legality
// itself; it only asks.
type Rules interface {
	// LegalMoves returns the legal moves of the piece standing on from, for the side to move.
	// Promotions are returned once per destination with no elected piece.
	LegalMoves(s Snapshot, from Square) []Movement
	// AllLegalMoves returns every legal move of the side to move in board scan order
	// (file-major, then rank), and per piece in the order the generator produced them.
	AllLegalMoves(s Snapshot) []Movement
	// Apply plays a legal move.
	Apply(s Snapshot, m Movement) Snapshot
	// Status tells whether the side to move is in check, mated or stalemated.
	Status(s Snapshot) Status
}

// Chess implements Rules on top of github.com/notnil/chess.
type Chess struct {
	logger *log.Logger
}

// ChessRules returns the notnil/chess backed rules engine. A nil logger discards output.
func ChessRules(logger *log.Logger) *Chess {
	if logger == nil {
		logger = discard
	}
	return &Chess{logger: logger}
}

func (c *Chess) LegalMoves(s Snapshot, from Square) []Movement {
	var retVal []Movement
	for _, m := range c.AllLegalMoves(s) {
		if m.Start == from {
			retVal = append(retVal, m)
		}
	}
	return retVal
}

func (c *Chess) AllLegalMoves(s Snapshot) []Movement {
	if _, ok := s.Board.King(s.Turn); !ok {
		return nil
	}
	pos, err := position(EncodeFEN(s))
	if err != nil {
		c.logger.Printf("cannot build position: %v", err)
		return nil
	}

	valid := pos.ValidMoves()
	retVal := make([]Movement, 0, len(valid))
	seen := make(map[[2]Square]bool, len(valid))
	for _, vm := range valid {
		m := c.convert(vm, s.Turn)
		if m.Kind == Promotion {
			key := [2]Square{m.Start, m.End}
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		retVal = append(retVal, m)
	}
	sort.SliceStable(retVal, func(i, j int) bool {
		return retVal[i].Start.index() < retVal[j].Start.index()
	})
	return retVal
}

func (c *Chess) Apply(s Snapshot, m Movement) Snapshot { return s.Apply(m) }

// Status asks notnil/chess for checkmate and stalemate. A position where the side to move has
// no king cannot continue and counts as stalemate.
func (c *Chess) Status(s Snapshot) Status {
	if _, ok := s.Board.King(s.Turn); !ok {
		return Stalemate
	}
	pos, err := position(EncodeFEN(s))
	if err != nil {
		c.logger.Printf("cannot build position: %v", err)
		return Stalemate
	}
	switch pos.Status() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	}
	if c.inCheck(s) {
		return Check
	}
	return Ongoing
}

// inCheck asks notnil/chess whether the side to move is in check. The turn is passed to the
// opponent and the opponent's king is lifted off the board, so that none of its moves are
// discarded for exposing that king; the side to move is in check exactly when one of them lands
// on its king.
func (c *Chess) inCheck(s Snapshot) bool {
	king, ok := s.Board.King(s.Turn)
	if !ok {
		return false
	}
	passed := s.PassTurn()
	passed.Castling = 0
	if sq, ok := passed.Board.King(passed.Turn); ok {
		passed.Board.Set(sq, NoPiece)
	}
	pos, err := position(EncodeFEN(passed))
	if err != nil {
		c.logger.Printf("cannot build position: %v", err)
		return false
	}
	for _, m := range pos.ValidMoves() {
		if fromChessSquare(m.S2()) == king {
			return true
		}
	}
	return false
}

func (c *Chess) convert(m *chess.Move, turn Side) Movement {
	start, end := fromChessSquare(m.S1()), fromChessSquare(m.S2())
	switch {
	case m.HasTag(chess.KingSideCastle):
		return CastlingMove(turn, true)
	case m.HasTag(chess.QueenSideCastle):
		return CastlingMove(turn, false)
	case m.HasTag(chess.EnPassant):
		return EnPassantMove(start, end)
	case m.Promo() != chess.NoPieceType:
		return PromotionMove(start, end)
	}
	return Move(start, end)
}
