// Package eval implements the engine's static position evaluator: a
// classical, tapered (middlegame/endgame-blended) scorer combining
// material, piece-square tables, mobility, king safety, bishop pair,
// rook placement and pawn structure. Like the reference engine, it is
// treated as an opaque function by the rest of the search — only its
// signature and monotonicity in material matter to callers.
package eval

import "github.com/berserk-go/berserk/internal/board"

// maxPhase is the game-phase ceiling used to blend middlegame and
// endgame scores: 2 queens (4 each) + 4 rooks (2 each) + 8 minors
// (1 each) = 24, matching a full starting set of non-pawn material.
const maxPhase = 24

var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// Evaluate returns the static score of pos from the side to move's
// perspective, in centipawns. Positive favors the side to move.
func Evaluate(pos *board.Position, pawnCache *PawnCache) int {
	mg, eg := evaluateTapered(pos, pawnCache)

	var phase int
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Knight; pt <= board.Queen; pt++ {
			phase += phaseWeight[pt] * pos.Pieces[c][pt].PopCount()
		}
	}
	if phase > maxPhase {
		phase = maxPhase
	}

	score := (mg*phase + eg*(maxPhase-phase)) / maxPhase

	if pos.SideToMove == board.Black {
		score = -score
	}
	return score + tempoBonus
}

func evaluateTapered(pos *board.Position, pawnCache *PawnCache) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				mg += sign * (pieceValues[pt] + pstValue(pt, sq, c))
				eg += sign * (pieceValues[pt] + pstEgValue(pt, sq, c))
			}
		}
	}

	mobMg, mobEg := evaluateMobility(pos)
	mg += mobMg
	eg += mobEg

	mg += evaluateKingSafety(pos)

	bpMg, bpEg := evaluateBishopPair(pos)
	mg += bpMg
	eg += bpEg

	rfMg, rfEg := evaluateRookFiles(pos)
	mg += rfMg
	eg += rfEg

	ppMg, ppEg := evaluatePassedPawns(pos)
	mg += ppMg
	eg += ppEg

	psMg, psEg := pawnCache.structure(pos)
	mg += psMg
	eg += psEg

	return mg, eg
}

func evaluateMobility(pos *board.Position) (mg, eg int) {
	occupied := pos.AllOccupied

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		enemyPawns := pos.Pieces[c.Other()][board.Pawn]
		var unsafe board.Bitboard
		if c == board.White {
			unsafe = enemyPawns.SouthEast() | enemyPawns.SouthWest()
		} else {
			unsafe = enemyPawns.NorthEast() | enemyPawns.NorthWest()
		}
		blocked := unsafe | pos.Occupied[c]

		for pt := board.Knight; pt <= board.Queen; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				var attacks board.Bitboard
				switch pt {
				case board.Knight:
					attacks = board.KnightAttacks(sq)
				case board.Bishop:
					attacks = board.BishopAttacks(sq, occupied)
				case board.Rook:
					attacks = board.RookAttacks(sq, occupied)
				case board.Queen:
					attacks = board.QueenAttacks(sq, occupied)
				}
				count := (attacks &^ blocked).PopCount()
				mg += sign * mobilityMgWeight[pt] * count
				eg += sign * mobilityEgWeight[pt] * count
			}
		}
	}
	return mg, eg
}

// evaluateKingSafety scores pawn-shield integrity and file openness in
// front of each king; a middlegame-only term since a king in the
// endgame wants activity rather than shelter.
func evaluateKingSafety(pos *board.Position) (mg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		kingSq := pos.KingSquare[c]
		ownPawns := pos.Pieces[c][board.Pawn]
		enemyPawns := pos.Pieces[c.Other()][board.Pawn]

		enemyAttackers := 0
		zone := board.KingAttacks(kingSq) | board.SquareBB(kingSq)
		for pt := board.Knight; pt <= board.Queen; pt++ {
			bb := pos.Pieces[c.Other()][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				var attacks board.Bitboard
				switch pt {
				case board.Knight:
					attacks = board.KnightAttacks(sq)
				case board.Bishop:
					attacks = board.BishopAttacks(sq, pos.AllOccupied)
				case board.Rook:
					attacks = board.RookAttacks(sq, pos.AllOccupied)
				case board.Queen:
					attacks = board.QueenAttacks(sq, pos.AllOccupied)
				}
				if attacks&zone != 0 {
					enemyAttackers += attackerWeight[pt]
				}
			}
		}
		mg -= sign * enemyAttackers / 10

		kingFile := kingSq.File()
		for f := kingFile - 1; f <= kingFile+1; f++ {
			if f < 0 || f > 7 {
				continue
			}
			fileMask := board.FileMask[f]
			ownOnFile := ownPawns & fileMask
			enemyOnFile := enemyPawns & fileMask

			shieldRank := 1
			if c == board.Black {
				shieldRank = 6
			}
			if ownPawns&(fileMask&board.RankMask[shieldRank]) != 0 {
				mg += sign * pawnShieldBonus
			} else if ownOnFile == 0 {
				mg += sign * pawnShieldMissing
			}

			if ownOnFile == 0 && enemyOnFile == 0 {
				mg += sign * openFileNearKing
			} else if ownOnFile == 0 {
				mg += sign * semiOpenFileNearKing
			}
		}
	}
	return mg
}

func evaluateBishopPair(pos *board.Position) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		if pos.Pieces[c][board.Bishop].PopCount() >= 2 {
			mg += sign * bishopPairMgBonus
			eg += sign * bishopPairEgBonus
		}
	}
	return mg, eg
}

func evaluateRookFiles(pos *board.Position) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		rooks := pos.Pieces[c][board.Rook]
		for rooks != 0 {
			sq := rooks.PopLSB()
			fileMask := board.FileMask[sq.File()]
			ownPawnsOnFile := pos.Pieces[c][board.Pawn] & fileMask
			enemyPawnsOnFile := pos.Pieces[c.Other()][board.Pawn] & fileMask

			if ownPawnsOnFile == 0 && enemyPawnsOnFile == 0 {
				mg += sign * rookOpenFileMg
				eg += sign * rookOpenFileEg
			} else if ownPawnsOnFile == 0 {
				mg += sign * rookSemiOpenFileMg
				eg += sign * rookSemiOpenFileEg
			}
		}
	}
	return mg, eg
}

func isPassedPawn(pos *board.Position, sq board.Square, c board.Color) bool {
	file := sq.File()
	var spanFiles board.Bitboard
	for f := file - 1; f <= file+1; f++ {
		if f >= 0 && f <= 7 {
			spanFiles |= board.FileMask[f]
		}
	}

	var ahead board.Bitboard
	if c == board.White {
		for r := sq.Rank() + 1; r < 8; r++ {
			ahead |= board.RankMask[r]
		}
	} else {
		for r := 0; r < sq.Rank(); r++ {
			ahead |= board.RankMask[r]
		}
	}

	return pos.Pieces[c.Other()][board.Pawn]&spanFiles&ahead == 0
}

func evaluatePassedPawns(pos *board.Position) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		pawns := pos.Pieces[c][board.Pawn]
		for pawns != 0 {
			sq := pawns.PopLSB()
			if !isPassedPawn(pos, sq, c) {
				continue
			}
			rank := sq.RelativeRank(c)
			bonus := passedPawnBonus[rank]
			mg += sign * bonus
			eg += sign * bonus * 3 / 2
		}
	}
	return mg, eg
}
