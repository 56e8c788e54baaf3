package game

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func find(t *testing.T, moves []Movement, start, end Square) Movement {
	t.Helper()
	for _, m := range moves {
		if m.Start == start && m.End == end {
			return m
		}
	}
	t.Fatalf("no move %v%v in %v", start, end, moves)
	return Movement{}
}

func TestFENRoundTrip(t *testing.T) {
	start := StartingSnapshot()
	assert.Equal(t, StartFEN, EncodeFEN(start))

	decoded, err := DecodeFEN(StartFEN)
	require.NoError(t, err)
	assert.Equal(t, start, decoded)

	after := start.Apply(Move(Sq(5, 2), Sq(5, 4)))
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", EncodeFEN(after))

	decoded, err = DecodeFEN(EncodeFEN(after))
	require.NoError(t, err)
	assert.Equal(t, after, decoded)
}

func TestDecodeFENRejectsGarbage(t *testing.T) {
	_, err := DecodeFEN("not a fen")
	require.Error(t, err)
	assert.Equal(t, ErrInvalidFEN, errors.Cause(err))
}

func TestSnapshotIsIndependent(t *testing.T) {
	live := StartingSnapshot()
	snap := live
	snap.Board.Set(Sq(5, 1), NoPiece)
	assert.Equal(t, Piece{King, White}, live.Board.At(Sq(5, 1)))

	_ = live.Apply(Move(Sq(5, 2), Sq(5, 4)))
	assert.Equal(t, StartingSnapshot(), live)
}

func TestCastlingMovesKingAndRookOnly(t *testing.T) {
	rules := ChessRules(nil)
	pos := MustFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	for _, tc := range []struct {
		name                 string
		kingEnd, rook, rookE Square
	}{
		{"king side", Sq(7, 1), Sq(8, 1), Sq(6, 1)},
		{"queen side", Sq(3, 1), Sq(1, 1), Sq(4, 1)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := find(t, rules.LegalMoves(pos, Sq(5, 1)), Sq(5, 1), tc.kingEnd)
			require.Equal(t, Castle, m.Kind)
			assert.Equal(t, tc.rook, m.RookSquare)
			assert.Equal(t, tc.rookE, m.RookEnd)

			next := rules.Apply(pos, m)
			assert.Equal(t, Piece{King, White}, next.Board.At(tc.kingEnd))
			assert.Equal(t, Piece{Rook, White}, next.Board.At(tc.rookE))
			assert.True(t, next.Board.At(Sq(5, 1)).Empty())
			assert.True(t, next.Board.At(tc.rook).Empty())

			changed := map[Square]bool{Sq(5, 1): true, tc.kingEnd: true, tc.rook: true, tc.rookE: true}
			for f := 1; f <= ColNum; f++ {
				for r := 1; r <= RowNum; r++ {
					if sq := Sq(f, r); !changed[sq] {
						assert.Equal(t, pos.Board.At(sq), next.Board.At(sq), "square %v", sq)
					}
				}
			}
			assert.Equal(t, BlackKingSide|BlackQueenSide, next.Castling)
		})
	}
}

func TestEnPassantRemovesCapturedPawn(t *testing.T) {
	rules := ChessRules(nil)
	pos := MustFEN("4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1")
	m := find(t, rules.LegalMoves(pos, Sq(5, 5)), Sq(5, 5), Sq(4, 6))
	require.Equal(t, EnPassant, m.Kind)
	assert.Equal(t, Sq(4, 5), m.Captured)

	next := rules.Apply(pos, m)
	assert.True(t, next.Board.At(Sq(4, 5)).Empty())
	assert.Equal(t, Piece{Pawn, White}, next.Board.At(Sq(4, 6)))
}

func TestPromotionIsElectedOnce(t *testing.T) {
	rules := ChessRules(nil)
	pos := MustFEN("4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	moves := rules.LegalMoves(pos, Sq(1, 7))
	require.Len(t, moves, 1, "promotions collapse to one move per destination")

	m := moves[0]
	require.True(t, m.NeedsElection())
	require.NoError(t, m.Elect(Knight))
	assert.Equal(t, ErrPromotionSet, m.Elect(Queen))
	plain := Move(Sq(1, 1), Sq(1, 2))
	assert.Error(t, plain.Elect(Queen))

	next := rules.Apply(pos, m)
	assert.Equal(t, Piece{Knight, White}, next.Board.At(Sq(1, 8)))
	assert.Equal(t, "a7a8n", EncodeUCI(m))

	bad := PromotionMove(Sq(1, 7), Sq(1, 8))
	assert.Error(t, bad.Elect(King))
}

func TestLegalMovesScanOrder(t *testing.T) {
	moves := ChessRules(nil).AllLegalMoves(StartingSnapshot())
	require.Len(t, moves, 20)
	assert.Equal(t, Sq(1, 2), moves[0].Start)
	for i := 1; i < len(moves); i++ {
		assert.LessOrEqual(t, moves[i-1].Start.index(), moves[i].Start.index())
	}
}

func TestStatus(t *testing.T) {
	rules := ChessRules(nil)
	for fen, want := range map[string]Status{
		StartFEN:                        Ongoing,
		"k7/1Q6/1K6/8/8/8/8/8 b - - 0 1": Checkmate,
		"k7/2Q5/1K6/8/8/8/8/8 b - - 0 1": Stalemate,
		"k7/8/1K6/8/8/8/8/Q7 b - - 0 1":  Check,
		// the knight giving check is pinned against its own king
		"8/8/8/3kb3/8/2N5/8/K7 b - - 0 1": Check,
		"8/8/8/3k4/8/8/8/K7 b - - 0 1":    Ongoing,
		"8/8/8/8/8/8/8/K7 b - - 0 1":      Stalemate,
	} {
		assert.Equal(t, want, rules.Status(MustFEN(fen)), fen)
	}
	assert.True(t, Checkmate.Terminal())
	assert.False(t, Check.Terminal())
}

func TestDecodeUCI(t *testing.T) {
	rules := ChessRules(nil)
	start := StartingSnapshot()

	m, err := DecodeUCI(rules, start, "e2e4")
	require.NoError(t, err)
	assert.Equal(t, Move(Sq(5, 2), Sq(5, 4)), m)

	for _, bad := range []string{"e2e5", "zz", "e2e4q", "i9a1"} {
		_, err := DecodeUCI(rules, start, bad)
		assert.Equal(t, ErrBadUCIMove, errors.Cause(err), bad)
	}

	promo := MustFEN("4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	m, err = DecodeUCI(rules, promo, "a7a8r")
	require.NoError(t, err)
	assert.Equal(t, Rook, m.Elected)

	m, err = DecodeUCI(rules, promo, "a7a8")
	require.NoError(t, err)
	assert.True(t, m.NeedsElection())

	castle := MustFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	m, err = DecodeUCI(rules, castle, "e1g1")
	require.NoError(t, err)
	assert.Equal(t, CastlingMove(White, true), m)
}

func TestTimeline(t *testing.T) {
	rules := ChessRules(nil)
	tl := NewTimeline(StartingSnapshot())
	for _, text := range []string{"e2e4", "e7e5", "g1f3"} {
		m, err := DecodeUCI(rules, tl.Snapshot(), text)
		require.NoError(t, err)
		next := rules.Apply(tl.Snapshot(), m)
		tl.Push(m, next, rules.Status(next))
	}
	assert.Equal(t, 3, tl.HalfMoves())
	assert.Equal(t, Black, tl.Snapshot().Turn)
	assert.False(t, tl.Ended())

	assert.False(t, tl.ResetTo(4))
	assert.False(t, tl.ResetTo(-1))
	require.True(t, tl.ResetTo(1))
	assert.Equal(t, 1, tl.HalfMoves())
	assert.Equal(t, Black, tl.Snapshot().Turn)
	last, ok := tl.Last()
	require.True(t, ok)
	assert.Equal(t, "e2e4", EncodeUCI(last.Move))

	require.True(t, tl.ResetTo(0))
	assert.Equal(t, StartingSnapshot(), tl.Snapshot())
	_, ok = tl.Last()
	assert.False(t, ok)
}

func TestControls(t *testing.T) {
	pos := MustFEN("4k3/8/8/8/3N4/8/1B6/R3K3 w - - 0 1")
	assert.True(t, pos.Board.Controls(Sq(4, 4), Sq(5, 6)), "knight d4 hits e6")
	assert.False(t, pos.Board.Controls(Sq(4, 4), Sq(5, 5)))
	assert.True(t, pos.Board.Controls(Sq(2, 2), Sq(3, 3)))
	assert.False(t, pos.Board.Controls(Sq(2, 2), Sq(5, 5)), "d4 blocks the diagonal")
	assert.False(t, pos.Board.Controls(Sq(1, 1), Sq(1, 8)), "rooks are not tracked")
}
