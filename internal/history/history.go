// Package history implements the search's move-ordering memory: a
// butterfly table, two plies of continuation history, killer moves and
// a counter-move table, all updated with the reference engine's gravity
// formula so magnitudes stay self-limiting across a long search without
// an explicit aging pass.
package history

import "github.com/berserk-go/berserk/internal/board"

// MaxPly bounds the killer-move table; search never recurses deeper
// than this in practice, and a move beyond it simply isn't recorded.
const MaxPly = 128

// maxBonus mirrors the reference engine's history cap: depth*depth,
// capped so a handful of deep cutoffs can't saturate a table entry.
const maxBonus = 576

// Tables holds one search's worth of move-ordering memory. The zero
// value is ready to use. A Tables is not safe for concurrent use by
// more than one search worker; each Lazy-SMP worker owns its own.
type Tables struct {
	// butterfly[side][StartEnd()] is the plain from/to history table.
	butterfly [2][4096]int32

	// continuation1[parentPiece][parentTo][piece][to] indexes by the
	// move made one ply earlier, i.e. the opponent's last move.
	continuation1 [6][64][6][64]int32

	// continuation2 is the same shape, keyed off the move made two
	// plies earlier (the follow-up / "formerly" history).
	continuation2 [6][64][6][64]int32

	killers  [MaxPly][2]board.Move
	counters [4096]board.Move
}

// New returns an empty set of history tables.
func New() *Tables {
	return &Tables{}
}

// Clear discards all accumulated history, killers and counter moves.
// Call once per "go" command if the engine is not aging tables across
// searches.
func (t *Tables) Clear() {
	*t = Tables{}
}

// addGravity applies the reference engine's self-limiting update:
// entry moves toward inc, faster when far from it, asymptoting rather
// than overflowing.
func addGravity(entry *int32, inc int) {
	v := int(*entry)
	v += 64*inc - v*absInt(inc)/1024
	*entry = int32(v)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Bonus returns the gravity increment for a cutoff found at depth.
func Bonus(depth int) int {
	b := depth * depth
	if b > maxBonus {
		b = maxBonus
	}
	return b
}

// Killer1 and Killer2 return the two killer moves recorded at ply, or
// NoMove if none has been registered yet.
func (t *Tables) Killer1(ply int) board.Move {
	if ply < 0 || ply >= MaxPly {
		return board.NoMove
	}
	return t.killers[ply][0]
}

func (t *Tables) Killer2(ply int) board.Move {
	if ply < 0 || ply >= MaxPly {
		return board.NoMove
	}
	return t.killers[ply][1]
}

// Counter returns the recorded reply to parent, or NoMove if none.
func (t *Tables) Counter(parent board.Move) board.Move {
	if parent == board.NoMove {
		return board.NoMove
	}
	return t.counters[parent.StartEnd()]
}

// addKiller registers m as the new primary killer at ply, demoting the
// previous primary killer to secondary. A move already recorded as the
// primary killer is left untouched.
func (t *Tables) addKiller(m board.Move, ply int) {
	if ply < 0 || ply >= MaxPly {
		return
	}
	if t.killers[ply][0] == m {
		return
	}
	t.killers[ply][1] = t.killers[ply][0]
	t.killers[ply][0] = m
}

// Update applies the gravity bonus to best (the quiet move that caused
// a beta cutoff) across the butterfly and both continuation tables,
// applies the matching malus to every quiet move tried before it,
// registers best as a killer at ply, and records it as the counter to
// parent if a parent move exists. best must be quiet; callers must not
// call Update for a capture or promotion.
func (t *Tables) Update(side board.Color, best board.Move, depth, ply int, quietsTried []board.Move, parent, grandparent board.Move) {
	inc := Bonus(depth)

	t.applyGravity(side, best, inc, parent, grandparent)
	for _, q := range quietsTried {
		if q == best {
			continue
		}
		t.applyGravity(side, q, -inc, parent, grandparent)
	}

	t.addKiller(best, ply)
	if parent != board.NoMove {
		t.counters[parent.StartEnd()] = best
	}
}

func (t *Tables) applyGravity(side board.Color, m board.Move, inc int, parent, grandparent board.Move) {
	addGravity(&t.butterfly[side][m.StartEnd()], inc)

	if parent != board.NoMove {
		addGravity(&t.continuation1[parent.Piece()][parent.To()][m.Piece()][m.To()], inc)
	}
	if grandparent != board.NoMove {
		addGravity(&t.continuation2[grandparent.Piece()][grandparent.To()][m.Piece()][m.To()], inc)
	}
}

// Score returns the ordering value of m: the sum of its butterfly,
// continuation-1 and continuation-2 entries where the relevant parent
// move exists. Captures and promotions always score 0 — tactical moves
// are ordered by MVV-LVA/SEE instead, never by quiet history.
func (t *Tables) Score(side board.Color, m board.Move, parent, grandparent board.Move) int {
	if m.Tactical() {
		return 0
	}

	score := int(t.butterfly[side][m.StartEnd()])
	if parent != board.NoMove {
		score += int(t.continuation1[parent.Piece()][parent.To()][m.Piece()][m.To()])
	}
	if grandparent != board.NoMove {
		score += int(t.continuation2[grandparent.Piece()][grandparent.To()][m.Piece()][m.To()])
	}
	return score
}
