package game

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	RowNum = 8
	ColNum = 8
)

// Side is the owner of a piece, and the side to move.
type Side int8

const (
	White Side = iota
	Black
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) String() string {
	switch s {
	case White:
		return "White"
	case Black:
		return "Black"
	}
	return "UNKNOWN SIDE"
}

// backRank is the rank a side's pieces start on.
func (s Side) backRank() int8 {
	if s == White {
		return 1
	}
	return RowNum
}

// Square is a board coordinate. File and Rank are both in [1, 8]; the zero value is "no square".
type Square struct {
	File, Rank int8
}

// Sq is shorthand for Square{file, rank}.
func Sq(file, rank int) Square { return Square{File: int8(file), Rank: int8(rank)} }

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	return s.File >= 1 && s.File <= ColNum && s.Rank >= 1 && s.Rank <= RowNum
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+s.File-1, '1'+s.Rank-1)
}

// ParseSquare parses algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, errors.Errorf("bad square %q", s)
	}
	sq := Square{File: int8(s[0]-'a') + 1, Rank: int8(s[1]-'1') + 1}
	if !sq.Valid() {
		return Square{}, errors.Errorf("bad square %q", s)
	}
	return sq, nil
}

// index is the board scan position of a square: file-major, then rank.
func (s Square) index() int { return int(s.File-1)*RowNum + int(s.Rank-1) }

// Kind is the closed set of piece types.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindLetters = [...]byte{NoKind: '.', Pawn: 'p', Knight: 'n', Bishop: 'b', Rook: 'r', Queen: 'q', King: 'k'}

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	}
	return "None"
}

// Letter is the lower case FEN/UCI letter of the kind.
func (k Kind) Letter() byte { return kindLetters[k] }

// KindFromLetter is the inverse of Letter. It accepts either case.
func KindFromLetter(c byte) Kind {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	for k, l := range kindLetters {
		if l == c && Kind(k) != NoKind {
			return Kind(k)
		}
	}
	return NoKind
}

// Promotable reports whether a pawn may be promoted to k.
func (k Kind) Promotable() bool {
	return k == Knight || k == Bishop || k == Rook || k == Queen
}

// Piece is an immutable (kind, owner) pair. The zero value is an empty cell.
type Piece struct {
	Kind Kind
	Side Side
}

// NoPiece is an empty board cell.
var NoPiece = Piece{}

func (p Piece) Empty() bool { return p.Kind == NoKind }

func (p Piece) String() string {
	if p.Empty() {
		return "."
	}
	c := p.Kind.Letter()
	if p.Side == White {
		c -= 'a' - 'A'
	}
	return string(c)
}

// Board is an 8x8 grid indexed [file-1][rank-1]. It is a value: assigning a Board copies it.
type Board [ColNum][RowNum]Piece

// At returns the piece on sq.
func (b *Board) At(sq Square) Piece {
	if !sq.Valid() {
		return NoPiece
	}
	return b[sq.File-1][sq.Rank-1]
}

// Set puts p on sq.
func (b *Board) Set(sq Square, p Piece) { b[sq.File-1][sq.Rank-1] = p }

// Squares returns the occupied squares of a side in board scan order.
func (b *Board) Squares(side Side) []Square {
	var retVal []Square
	for f := 1; f <= ColNum; f++ {
		for r := 1; r <= RowNum; r++ {
			p := b[f-1][r-1]
			if !p.Empty() && p.Side == side {
				retVal = append(retVal, Sq(f, r))
			}
		}
	}
	return retVal
}

// King finds the king of a side.
func (b *Board) King(side Side) (Square, bool) {
	for f := 1; f <= ColNum; f++ {
		for r := 1; r <= RowNum; r++ {
			if p := b[f-1][r-1]; p.Kind == King && p.Side == side {
				return Sq(f, r), true
			}
		}
	}
	return Square{}, false
}

// Count returns how many pieces of the kind a side owns.
func (b *Board) Count(side Side, kind Kind) int {
	var n int
	for f := range b {
		for r := range b[f] {
			if p := b[f][r]; p.Kind == kind && p.Side == side {
				n++
			}
		}
	}
	return n
}

func (b *Board) String() string {
	var buf []byte
	for r := RowNum; r >= 1; r-- {
		for f := 1; f <= ColNum; f++ {
			buf = append(buf, b.At(Sq(f, r)).String()...)
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}

// Castling is the set of remaining castling rights.
type Castling uint8

const (
	WhiteKingSide Castling = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  Castling = 0
	AllCastling          = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

func (c Castling) String() string {
	if c == NoCastling {
		return "-"
	}
	var s []byte
	for _, r := range []struct {
		bit    Castling
		letter byte
	}{{WhiteKingSide, 'K'}, {WhiteQueenSide, 'Q'}, {BlackKingSide, 'k'}, {BlackQueenSide, 'q'}} {
		if c&r.bit != 0 {
			s = append(s, r.letter)
		}
	}
	return string(s)
}

// Status is the rules verdict on a position for the side to move.
type Status uint8

const (
	Ongoing Status = iota
	Check
	Checkmate
	Stalemate
)

func (s Status) String() string {
	switch s {
	case Ongoing:
		return "Ongoing"
	case Check:
		return "Check"
	case Checkmate:
		return "Checkmate"
	case Stalemate:
		return "Stalemate"
	}
	return "UNKNOWN STATUS"
}

// Terminal reports whether the game is over.
func (s Status) Terminal() bool { return s == Checkmate || s == Stalemate }

// View is anything that can hand out a copy of the current position.
type View interface {
	Snapshot() Snapshot
}
