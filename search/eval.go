package search

import (
	"github.com/knightline/game"
)

// Evaluation weights, in pawns.
const (
	CenterBonus     float32 = 0.1
	BishopPairBonus float32 = 0.5
	PawnAdvance     float32 = 0.05
	MobilityWeight  float32 = 0.01
)

// materialWeights is indexed by game.Kind.
var materialWeights = [...]float32{
	game.NoKind: 0,
	game.Pawn:   1.0,
	game.Knight: 3.2,
	game.Bishop: 3.4,
	game.Rook:   5.0,
	game.Queen:  9.0,
	game.King:   5000,
}

// Material returns the fixed value of a piece kind.
func Material(k game.Kind) float32 { return materialWeights[k] }

var center = [...]game.Square{game.Sq(4, 4), game.Sq(5, 4), game.Sq(4, 5), game.Sq(5, 5)}

// Evaluate scores pos statically from the point of view of side. Positive is good for side.
func Evaluate(rules game.Rules, pos game.Snapshot, side game.Side) float32 {
	return evaluate(rules, pos, side, len(rules.AllLegalMoves(pos)))
}

// evaluate is Evaluate with the mover's legal move count already known.
func evaluate(rules game.Rules, pos game.Snapshot, side game.Side, moverMoves int) float32 {
	var score float32
	for k := game.Pawn; k <= game.King; k++ {
		diff := pos.Board.Count(side, k) - pos.Board.Count(side.Opposite(), k)
		score += materialWeights[k] * float32(diff)
	}
	score += advancement(&pos.Board, side) - advancement(&pos.Board, side.Opposite())
	score += structure(&pos.Board, side) - structure(&pos.Board, side.Opposite())

	waiterMoves := len(rules.AllLegalMoves(pos.PassTurn()))
	mobility := float32(moverMoves - waiterMoves)
	if pos.Turn != side {
		mobility = -mobility
	}
	return score + MobilityWeight*mobility
}

// advancement sums how far a side's pawns stand from its back rank.
func advancement(b *game.Board, side game.Side) float32 {
	back := int8(1)
	if side == game.Black {
		back = game.RowNum
	}
	var ranks int8
	for _, sq := range b.Squares(side) {
		if b.At(sq).Kind != game.Pawn {
			continue
		}
		if d := sq.Rank - back; d < 0 {
			ranks -= d
		} else {
			ranks += d
		}
	}
	return PawnAdvance * float32(ranks)
}

// structure scores the bishop pair and knight/bishop control of the four center squares.
func structure(b *game.Board, side game.Side) float32 {
	var score float32
	if b.Count(side, game.Bishop) >= 2 {
		score += BishopPairBonus
	}

	minors := make([]game.Square, 0, 4)
	for _, sq := range b.Squares(side) {
		if k := b.At(sq).Kind; k == game.Knight || k == game.Bishop {
			minors = append(minors, sq)
		}
	}
	for _, c := range center {
		for _, from := range minors {
			if from == c || b.Controls(from, c) {
				score += CenterBonus
				break
			}
		}
	}
	return score
}
