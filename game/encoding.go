package game

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrBadUCIMove is returned for coordinate moves that are malformed or not legal in the position.
var ErrBadUCIMove = errors.New("bad UCI move")

// EncodeUCI writes a movement in coordinate notation: e2e4, e1g1, e7e8q.
func EncodeUCI(m Movement) string {
	s := m.Start.String() + m.End.String()
	if m.Kind == Promotion && m.Elected != NoKind {
		s += string(m.Elected.Letter())
	}
	return s
}

// DecodeUCI resolves a 4-5 character coordinate move against the legal moves of s, so the
// result carries the special-move details (rook squares, captured pawn) that the text omits.
// A promotion without a letter comes back with no elected piece.
func DecodeUCI(rules Rules, s Snapshot, text string) (Movement, error) {
	text = strings.TrimSpace(text)
	if len(text) != 4 && len(text) != 5 {
		return Movement{}, errors.Wrapf(ErrBadUCIMove, "%q", text)
	}
	start, err := ParseSquare(text[0:2])
	if err != nil {
		return Movement{}, errors.Wrapf(ErrBadUCIMove, "%q", text)
	}
	end, err := ParseSquare(text[2:4])
	if err != nil {
		return Movement{}, errors.Wrapf(ErrBadUCIMove, "%q", text)
	}
	var promo Kind
	if len(text) == 5 {
		if promo = KindFromLetter(text[4]); !promo.Promotable() {
			return Movement{}, errors.Wrapf(ErrBadUCIMove, "%q: promotion piece", text)
		}
	}

	for _, m := range rules.LegalMoves(s, start) {
		if m.End != end {
			continue
		}
		if promo != NoKind {
			if err := m.Elect(promo); err != nil {
				return Movement{}, errors.Wrapf(ErrBadUCIMove, "%q: %v", text, err)
			}
		}
		return m, nil
	}
	return Movement{}, errors.Wrapf(ErrBadUCIMove, "%q is not legal in %s", text, EncodeFEN(s))
}
