package game

import (
	"strconv"
	"strings"

	"github.com/notnil/chess"
	"github.com/pkg/errors"
)

// ErrInvalidFEN is returned for text that is not a legal FEN record.
var ErrInvalidFEN = errors.New("invalid FEN")

// StartFEN is the FEN of the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// EncodeFEN serializes a snapshot.
func EncodeFEN(s Snapshot) string {
	var sb strings.Builder
	for r := RowNum; r >= 1; r-- {
		empty := 0
		for f := 1; f <= ColNum; f++ {
			p := s.Board.At(Sq(f, r))
			if p.Empty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(p.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if r > 1 {
			sb.WriteByte('/')
		}
	}

	turn := "w"
	if s.Turn == Black {
		turn = "b"
	}
	fullMove := s.FullMove
	if fullMove < 1 {
		fullMove = 1
	}
	sb.WriteString(" " + turn + " " + s.Castling.String() + " " + s.EnPassant.String())
	sb.WriteString(" " + strconv.Itoa(s.HalfMoves) + " " + strconv.Itoa(fullMove))
	return sb.String()
}

// DecodeFEN parses a FEN record. The record is validated by the rules library before the
// board is read back from it.
func DecodeFEN(fen string) (Snapshot, error) {
	fen = strings.TrimSpace(fen)
	pos, err := position(fen)
	if err != nil {
		return Snapshot{}, err
	}

	var s Snapshot
	for sq, p := range pos.Board().SquareMap() {
		s.Board.Set(fromChessSquare(sq), fromChessPiece(p))
	}
	s.Turn = fromChessColor(pos.Turn())

	fields := strings.Fields(fen)
	if len(fields) > 2 {
		for _, c := range fields[2] {
			switch c {
			case 'K':
				s.Castling |= WhiteKingSide
			case 'Q':
				s.Castling |= WhiteQueenSide
			case 'k':
				s.Castling |= BlackKingSide
			case 'q':
				s.Castling |= BlackQueenSide
			}
		}
	}
	if len(fields) > 3 && fields[3] != "-" {
		if s.EnPassant, err = ParseSquare(fields[3]); err != nil {
			return Snapshot{}, errors.Wrap(ErrInvalidFEN, err.Error())
		}
	}
	s.FullMove = 1
	if len(fields) > 5 {
		if s.HalfMoves, err = strconv.Atoi(fields[4]); err != nil {
			return Snapshot{}, errors.Wrapf(ErrInvalidFEN, "half-move clock %q", fields[4])
		}
		if s.FullMove, err = strconv.Atoi(fields[5]); err != nil {
			return Snapshot{}, errors.Wrapf(ErrInvalidFEN, "full-move number %q", fields[5])
		}
	}

	if _, ok := s.Board.King(White); !ok {
		return Snapshot{}, errors.Wrap(ErrInvalidFEN, "white king missing")
	}
	if _, ok := s.Board.King(Black); !ok {
		return Snapshot{}, errors.Wrap(ErrInvalidFEN, "black king missing")
	}
	return s, nil
}

// MustFEN is DecodeFEN for fixtures known to be valid.
func MustFEN(fen string) Snapshot {
	s, err := DecodeFEN(fen)
	if err != nil {
		panic(err)
	}
	return s
}

func position(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidFEN, err.Error())
	}
	return chess.NewGame(opt).Position(), nil
}

func fromChessSquare(sq chess.Square) Square {
	return Square{File: int8(sq.File()) + 1, Rank: int8(sq.Rank()) + 1}
}

func fromChessColor(c chess.Color) Side {
	if c == chess.Black {
		return Black
	}
	return White
}

var fromChessKind = map[chess.PieceType]Kind{
	chess.Pawn:   Pawn,
	chess.Knight: Knight,
	chess.Bishop: Bishop,
	chess.Rook:   Rook,
	chess.Queen:  Queen,
	chess.King:   King,
}

func fromChessPiece(p chess.Piece) Piece {
	if p == chess.NoPiece {
		return NoPiece
	}
	return Piece{Kind: fromChessKind[p.Type()], Side: fromChessColor(p.Color())}
}
