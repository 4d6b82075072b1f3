package movepick

import "github.com/berserk-go/berserk/internal/board"

// Material values for static exchange evaluation. Taken verbatim from
// the staged move-picker's SEE contract: a king's value is effectively
// infinite since it can never legally be captured.
const (
	seeValuePawn   = 100
	seeValueKnight = 450
	seeValueBishop = 450
	seeValueRook   = 650
	seeValueQueen  = 1250
	seeValueKing   = 30000
)

var seeValues = [6]int{seeValuePawn, seeValueKnight, seeValueBishop, seeValueRook, seeValueQueen, seeValueKing}

// SEE estimates the net material result, from the moving side's
// perspective, of playing m and allowing the full chain of recaptures
// on its destination square to play out. It is the standard recursive
// swap-off: at each step the side to move may stop recapturing whenever
// doing so would lose material, so the final value is the best either
// side can force.
func SEE(pos *board.Position, m board.Move) int {
	from := m.From()
	to := m.To()

	attacker := pos.PieceAt(from)
	if attacker == board.NoPiece {
		return 0
	}

	var gain int
	if m.IsEnPassant() {
		gain = seeValuePawn
	} else {
		victim := pos.PieceAt(to)
		if victim == board.NoPiece {
			return 0
		}
		gain = seeValues[victim.Type()]
	}

	if m.IsPromotion() {
		gain += seeValues[m.Promotion()] - seeValuePawn
	}

	return seeSwap(pos, to, from, attacker, gain)
}

// SEEGreaterOrEqual reports whether SEE(pos, m) >= threshold without
// computing the full exchange when an early cutoff already decides it;
// it simply delegates to SEE, which already cuts the swap loop short.
func SEEGreaterOrEqual(pos *board.Position, m board.Move, threshold int) bool {
	return SEE(pos, m) >= threshold
}

func seeSwap(pos *board.Position, target, excludeFrom board.Square, firstAttacker board.Piece, initialGain int) int {
	var gain [32]int
	d := 0
	gain[d] = initialGain

	occupied := pos.AllOccupied &^ board.SquareBB(excludeFrom)
	attackerValue := seeValues[firstAttacker.Type()]
	side := firstAttacker.Color().Other()

	for {
		d++
		if d >= len(gain) {
			break
		}
		gain[d] = attackerValue - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}

		sq, piece := leastValuableAttacker(pos, target, side, occupied)
		if sq == board.NoSquare {
			break
		}

		occupied &^= board.SquareBB(sq)
		attackerValue = seeValues[piece.Type()]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker finds the cheapest piece of side attacking
// target given the current occupancy, recomputing sliding attacks each
// call so that x-rayed attackers revealed by removing a blocker are
// picked up automatically.
func leastValuableAttacker(pos *board.Position, target board.Square, side board.Color, occupied board.Bitboard) (board.Square, board.Piece) {
	if attackers := pos.Pieces[side][board.Pawn] & board.PawnAttacks(target, side.Other()) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Pawn, side)
	}
	if attackers := pos.Pieces[side][board.Knight] & board.KnightAttacks(target) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Knight, side)
	}

	bishopAttacks := board.BishopAttacks(target, occupied)
	if attackers := pos.Pieces[side][board.Bishop] & bishopAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Bishop, side)
	}

	rookAttacks := board.RookAttacks(target, occupied)
	if attackers := pos.Pieces[side][board.Rook] & rookAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Rook, side)
	}

	if attackers := pos.Pieces[side][board.Queen] & (bishopAttacks | rookAttacks) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Queen, side)
	}

	if attackers := pos.Pieces[side][board.King] & board.KingAttacks(target) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.King, side)
	}

	return board.NoSquare, board.NoPiece
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
