package game

type offset struct{ df, dr int8 }

var (
	knightJumps = []offset{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	diagonals   = []offset{{1, 1}, {-1, 1}, {-1, -1}, {1, -1}}
)

func (s Square) shift(o offset) Square { return Square{File: s.File + o.df, Rank: s.Rank + o.dr} }

// Controls reports whether the piece standing on from attacks to. Only knights and
// bishops are supported, which is all the evaluation needs.
func (b *Board) Controls(from, to Square) bool {
	p := b.At(from)
	switch p.Kind {
	case Knight:
		for _, o := range knightJumps {
			if from.shift(o) == to {
				return true
			}
		}
	case Bishop:
		for _, o := range diagonals {
			for cur := from.shift(o); cur.Valid(); cur = cur.shift(o) {
				if cur == to {
					return true
				}
				if !b.At(cur).Empty() {
					break
				}
			}
		}
	}
	return false
}
