// Package movepick implements the search's staged move picker: a
// state machine that hands out the hash move, then good captures,
// then quiet-move hints (killers, counter move), then the remaining
// quiets ordered by history score, and finally the losing captures.
// All legal moves are generated and scored when the picker is built;
// the stages only control the order in which they are handed out.
package movepick

import (
	"sort"

	"github.com/berserk-go/berserk/internal/board"
	"github.com/berserk-go/berserk/internal/history"
)

// Stage identifies where in the generation sequence a Picker currently
// is. Stages always advance in this order; a stage that has nothing to
// offer falls through to the next one on the same Next call.
type Stage int

const (
	StageHash Stage = iota
	StageGoodTactical
	StageKiller1
	StageKiller2
	StageCounter
	StageQuiet
	StageBadTactical
	StageDone
)

// mvvLva[victim][attacker] scores a capture by the value of what it
// takes versus what it risks; ties among equal victims are broken by
// cheapest attacker first. Used only to order captures that have
// already passed (or are exempt from) the SEE split into good/bad.
var mvvLva = [6][6]int{
	/* victim Pawn   */ {15, 14, 14, 13, 12, 11},
	/* victim Knight */ {25, 24, 24, 23, 22, 21},
	/* victim Bishop */ {35, 34, 34, 33, 32, 31},
	/* victim Rook   */ {45, 44, 44, 43, 42, 41},
	/* victim Queen  */ {55, 54, 54, 53, 52, 51},
	/* victim King   */ {0, 0, 0, 0, 0, 0},
}

type scored struct {
	move  board.Move
	score int
}

// Picker is a staged, lazily-sorted move generator for a single search
// node. It is not reusable across nodes or safe for concurrent use;
// each call into search/qsearch constructs its own.
type Picker struct {
	pos  *board.Position
	hist *history.Tables

	ttMove      board.Move
	killer1     board.Move
	killer2     board.Move
	counter     board.Move
	parent      board.Move
	grandparent board.Move
	side        board.Color

	qsearch   bool
	inCheck   bool
	seeCutoff int
	skipQuiet bool

	stage Stage

	good, bad, quiet          []scored
	goodIdx, badIdx, quietIdx int

	// legal holds every move GenerateLegalMoves produced for this node,
	// so hash/killer/counter hints pulled from outside this node (the
	// TT, or a different line that set the killer) can be checked for
	// legality here by membership instead of re-deriving it from
	// possibly-stale embedded piece/capture bits.
	legal map[board.Move]bool
}

// New builds a move picker for a normal (non-quiescence) search node.
// parent and grandparent are the moves played one and two plies back
// (board.NoMove if the node is at or near the search root); they feed
// the continuation-history lookup and the counter-move hint.
func New(pos *board.Position, hist *history.Tables, ttMove board.Move, ply int, parent, grandparent board.Move) *Picker {
	mp := &Picker{
		pos:         pos,
		hist:        hist,
		ttMove:      ttMove,
		parent:      parent,
		grandparent: grandparent,
		side:        pos.SideToMove,
		inCheck:     pos.Checkers != 0,
	}
	mp.killer1 = hist.Killer1(ply)
	mp.killer2 = hist.Killer2(ply)
	mp.counter = hist.Counter(parent)
	mp.partition()
	return mp
}

// NewQuiescence builds a picker restricted to tactical moves whose SEE
// is at least seeCutoff. When the side to move is in check, every
// legal move is considered instead (there are no quiet "stand pat"
// options when in check).
func NewQuiescence(pos *board.Position, seeCutoff int) *Picker {
	mp := &Picker{
		pos:       pos,
		side:      pos.SideToMove,
		qsearch:   true,
		inCheck:   pos.Checkers != 0,
		seeCutoff: seeCutoff,
	}
	mp.partition()
	return mp
}

// SkipQuiets switches the picker into tactical-only mode for the rest
// of the node — e.g. once futility pruning has ruled out any quiet
// move raising alpha.
func (mp *Picker) SkipQuiets() {
	mp.skipQuiet = true
}

func (mp *Picker) partition() {
	moves := mp.pos.GenerateLegalMoves()
	mp.legal = make(map[board.Move]bool, moves.Len())

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		mp.legal[m] = true

		if m.Tactical() {
			see := SEE(mp.pos, m)
			if mp.qsearch && !mp.inCheck && see < mp.seeCutoff {
				continue
			}
			score := mvvLva[victimType(mp.pos, m)][m.Piece()]*1000 + see
			if see >= 0 {
				mp.good = append(mp.good, scored{m, score})
			} else {
				mp.bad = append(mp.bad, scored{m, score})
			}
			continue
		}

		if mp.qsearch && !mp.inCheck {
			continue
		}

		score := 0
		if mp.hist != nil {
			score = mp.hist.Score(mp.side, m, mp.parent, mp.grandparent)
		}
		mp.quiet = append(mp.quiet, scored{m, score})
	}

	sort.Slice(mp.good, func(i, j int) bool { return mp.good[i].score > mp.good[j].score })
	sort.Slice(mp.bad, func(i, j int) bool { return mp.bad[i].score > mp.bad[j].score })
	sort.Slice(mp.quiet, func(i, j int) bool { return mp.quiet[i].score > mp.quiet[j].score })
}

func victimType(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	p := pos.PieceAt(m.To())
	if p == board.NoPiece {
		return board.Pawn
	}
	return p.Type()
}

// Next returns the next move in stage order, or board.NoMove once the
// picker is exhausted.
func (mp *Picker) Next() board.Move {
	for {
		switch mp.stage {
		case StageHash:
			mp.stage = StageGoodTactical
			if mp.ttMove != board.NoMove && mp.legal[mp.ttMove] {
				return mp.ttMove
			}

		case StageGoodTactical:
			if m, ok := mp.next(&mp.good, &mp.goodIdx, mp.ttMove); ok {
				return m
			}
			mp.stage = StageKiller1

		case StageKiller1:
			mp.stage = StageKiller2
			if mp.quietHintUsable(mp.killer1) {
				return mp.killer1
			}

		case StageKiller2:
			mp.stage = StageCounter
			if mp.killer2 != mp.killer1 && mp.quietHintUsable(mp.killer2) {
				return mp.killer2
			}

		case StageCounter:
			mp.stage = StageQuiet
			if mp.counter != mp.killer1 && mp.counter != mp.killer2 && mp.quietHintUsable(mp.counter) {
				return mp.counter
			}

		case StageQuiet:
			if (mp.qsearch && !mp.inCheck) || mp.skipQuiet {
				mp.stage = StageBadTactical
				continue
			}
			for mp.quietIdx < len(mp.quiet) {
				m := mp.quiet[mp.quietIdx].move
				mp.quietIdx++
				if m == mp.ttMove || m == mp.killer1 || m == mp.killer2 || m == mp.counter {
					continue
				}
				return m
			}
			mp.stage = StageBadTactical

		case StageBadTactical:
			if m, ok := mp.next(&mp.bad, &mp.badIdx, mp.ttMove); ok {
				return m
			}
			mp.stage = StageDone

		case StageDone:
			return board.NoMove
		}
	}
}

// quietHintUsable reports whether a killer or counter-move hint can be
// emitted: it must exist, be legal here, be quiet (a stale hint can
// point at what is now a capture after the board changed), and not
// already be about to be emitted as the hash move.
func (mp *Picker) quietHintUsable(m board.Move) bool {
	return m != board.NoMove && m != mp.ttMove && m.IsQuiet() && mp.legal[m]
}

func (mp *Picker) next(list *[]scored, idx *int, skip board.Move) (board.Move, bool) {
	s := *list
	for *idx < len(s) {
		m := s[*idx].move
		*idx++
		if m == skip {
			continue
		}
		return m, true
	}
	return board.NoMove, false
}

// Stage reports the picker's current stage, mainly for tests and
// diagnostics ("info string" output in debug builds).
func (mp *Picker) Stage() Stage {
	return mp.stage
}
