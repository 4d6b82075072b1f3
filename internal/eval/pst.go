package eval

import "github.com/berserk-go/berserk/internal/board"

// Material values. King carries no material weight of its own; its
// presence in pieceValues keeps the index space aligned with
// board.PieceType.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

var pieceValues = [6]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0}

// Piece-square tables, written as a board diagram from White's side:
// the first row is rank 8 and the last row is rank 1. White squares are
// mirrored via Square.Mirror to index them; Black squares index them
// directly, which is the same diagram seen from Black's side. Values are deliberately modest — the exact numeric
// weights of the evaluator are not load-bearing for this engine, only
// the shape (material + placement + mobility + king safety + pawn
// structure) of a classical tapered evaluation.
var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [...][64]int{pawnPST, knightPST, bishopPST, rookPST, queenPST, kingMidgamePST}

// mobilityMgWeight/mobilityEgWeight are indexed by board.PieceType;
// pawn and king carry no mobility term.
var mobilityMgWeight = [6]int{0, 4, 5, 2, 1, 0}
var mobilityEgWeight = [6]int{0, 3, 4, 4, 2, 0}

const tempoBonus = 10

const (
	bishopPairMgBonus = 25
	bishopPairEgBonus = 50
)

const (
	rookOpenFileMg     = 20
	rookOpenFileEg     = 25
	rookSemiOpenFileMg = 10
	rookSemiOpenFileEg = 15
)

const (
	doubledPawnMgPenalty  = -15
	doubledPawnEgPenalty  = -20
	isolatedPawnMgPenalty = -20
	isolatedPawnEgPenalty = -25
	backwardPawnMgPenalty = -15
	backwardPawnEgPenalty = -10
)

var passedPawnBonus = [8]int{0, 10, 20, 40, 70, 120, 200, 0}

const (
	pawnShieldBonus      = 10
	pawnShieldMissing    = -15
	openFileNearKing     = -20
	semiOpenFileNearKing = -10
)

var attackerWeight = [6]int{0, 20, 20, 40, 80, 0}

func pstValue(pt board.PieceType, sq board.Square, c board.Color) int {
	if c == board.White {
		sq = sq.Mirror()
	}
	if pt == board.King {
		return kingMidgamePST[sq]
	}
	return psts[pt][sq]
}

func pstEgValue(pt board.PieceType, sq board.Square, c board.Color) int {
	if c == board.White {
		sq = sq.Mirror()
	}
	if pt == board.King {
		return kingEndgamePST[sq]
	}
	return psts[pt][sq]
}
