package eval

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/berserk-go/berserk/internal/board"
)

type pawnScore struct {
	mg, eg int16
}

// PawnCache memoizes pawn-structure evaluation (doubled, isolated and
// backward pawns) keyed by Position.PawnKey — the same structure
// recurs across thousands of nodes that only differ in piece
// placement elsewhere on the board. Replacing the reference engine's
// plain array PawnTable, ristretto gives admission-aware eviction
// (a structure seen once doesn't evict one seen constantly) instead of
// a blind direct-mapped overwrite.
type PawnCache struct {
	cache *ristretto.Cache[uint64, pawnScore]
}

// NewPawnCache builds a cache sized for roughly sizeMB megabytes of
// entries.
func NewPawnCache(sizeMB int) *PawnCache {
	if sizeMB < 1 {
		sizeMB = 1
	}
	maxCost := int64(sizeMB) * 1024 * 1024
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, pawnScore]{
		NumCounters: maxCost / 8 * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		// NewCache only fails on an invalid Config; the literal above
		// is always valid, so this would be a programming error.
		panic(err)
	}
	return &PawnCache{cache: cache}
}

// structure returns pos's pawn-structure middlegame/endgame scores,
// computing and caching on a miss. A nil *PawnCache (as used by
// callers that don't want caching, e.g. one-off evaluations in tests)
// always computes fresh.
func (pc *PawnCache) structure(pos *board.Position) (mg, eg int) {
	if pc == nil {
		return evaluatePawnStructure(pos)
	}

	if v, ok := pc.cache.Get(pos.PawnKey); ok {
		return int(v.mg), int(v.eg)
	}

	mgv, egv := evaluatePawnStructure(pos)
	pc.cache.Set(pos.PawnKey, pawnScore{int16(mgv), int16(egv)}, 1)
	return mgv, egv
}

// Clear discards every cached pawn-structure evaluation.
func (pc *PawnCache) Clear() {
	if pc != nil {
		pc.cache.Clear()
	}
}

func evaluatePawnStructure(pos *board.Position) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		allPawns := pos.Pieces[c][board.Pawn]
		pawns := allPawns

		for pawns != 0 {
			sq := pawns.PopLSB()
			file := sq.File()
			fileMask := board.FileMask[file]

			onFile := allPawns & fileMask
			if onFile.PopCount() > 1 {
				var forward board.Square
				if c == board.White {
					forward = onFile.MSB()
				} else {
					forward = onFile.LSB()
				}
				if sq == forward {
					mg += sign * doubledPawnMgPenalty
					eg += sign * doubledPawnEgPenalty
				}
			}

			var adjacent board.Bitboard
			if file > 0 {
				adjacent |= board.FileMask[file-1]
			}
			if file < 7 {
				adjacent |= board.FileMask[file+1]
			}
			if allPawns&adjacent == 0 {
				mg += sign * isolatedPawnMgPenalty
				eg += sign * isolatedPawnEgPenalty
				continue
			}

			if sq.RelativeRank(c) <= 1 {
				continue
			}

			var behind board.Bitboard
			if c == board.White {
				for r := 0; r < sq.Rank(); r++ {
					behind |= board.RankMask[r]
				}
			} else {
				for r := sq.Rank() + 1; r < 8; r++ {
					behind |= board.RankMask[r]
				}
			}

			adjacentPawns := allPawns & adjacent
			if adjacentPawns != 0 && adjacentPawns&behind == adjacentPawns {
				continue
			}

			var stop board.Square
			if c == board.White {
				stop = sq + 8
			} else {
				stop = sq - 8
			}
			if !stop.IsValid() {
				continue
			}
			enemyPawns := pos.Pieces[c.Other()][board.Pawn]
			if enemyPawns&board.PawnAttacks(stop, c) != 0 {
				mg += sign * backwardPawnMgPenalty
				eg += sign * backwardPawnEgPenalty
			}
		}
	}
	return mg, eg
}
