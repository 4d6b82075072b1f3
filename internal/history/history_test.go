package history

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/berserk-go/berserk/internal/board"
)

func TestScoreZeroBeforeAnyUpdate(t *testing.T) {
	h := New()
	m := board.NewMove(board.E2, board.E3, board.Pawn)
	assert.Equal(t, 0, h.Score(board.White, m, board.NoMove, board.NoMove))
}

func TestUpdateRewardsCutoffMoveAndPenalizesOthers(t *testing.T) {
	h := New()
	best := board.NewMove(board.E2, board.E4, board.Pawn)
	tried := board.NewMove(board.D2, board.D4, board.Pawn)

	h.Update(board.White, best, 6, 0, []board.Move{tried, best}, board.NoMove, board.NoMove)

	assert.Positive(t, h.Score(board.White, best, board.NoMove, board.NoMove))
	assert.Negative(t, h.Score(board.White, tried, board.NoMove, board.NoMove))
}

func TestCapturesAndPromotionsAlwaysScoreZero(t *testing.T) {
	h := New()
	cap := board.NewCapture(board.E4, board.D5, board.Pawn)
	// Pump history as if this exact move had been a quiet cutoff many times.
	for i := 0; i < 50; i++ {
		h.Update(board.White, board.NewMove(board.E4, board.D5, board.Pawn), 10, 0, nil, board.NoMove, board.NoMove)
	}
	assert.Equal(t, 0, h.Score(board.White, cap, board.NoMove, board.NoMove))
}

func TestGravityConvergesWithoutOverflow(t *testing.T) {
	h := New()
	m := board.NewMove(board.G1, board.F3, board.Knight)

	for i := 0; i < 10000; i++ {
		h.Update(board.White, m, 24, 0, nil, board.NoMove, board.NoMove)
	}

	score := h.Score(board.White, m, board.NoMove, board.NoMove)
	// v += 64*b - v*b/1024 has its fixed point at 64*1024 for any bonus b.
	assert.Less(t, score, 64*1024+1000, "gravity update must asymptote, not overflow")
	assert.Positive(t, score)
}

func TestContinuationHistoryRequiresMatchingParent(t *testing.T) {
	h := New()
	parent := board.NewMove(board.D2, board.D4, board.Pawn)
	best := board.NewMove(board.G8, board.F6, board.Knight)

	h.Update(board.White, best, 5, 0, nil, parent, board.NoMove)

	withParent := h.Score(board.Black, best, parent, board.NoMove)
	withoutParent := h.Score(board.Black, best, board.NoMove, board.NoMove)
	assert.Greater(t, withParent, withoutParent)
}

func TestKillersRegisterAndShift(t *testing.T) {
	h := New()
	m1 := board.NewMove(board.E2, board.E4, board.Pawn)
	m2 := board.NewMove(board.D2, board.D4, board.Pawn)

	h.Update(board.White, m1, 4, 3, nil, board.NoMove, board.NoMove)
	assert.Equal(t, m1, h.Killer1(3))
	assert.Equal(t, board.NoMove, h.Killer2(3))

	h.Update(board.White, m2, 4, 3, nil, board.NoMove, board.NoMove)
	assert.Equal(t, m2, h.Killer1(3))
	assert.Equal(t, m1, h.Killer2(3))
}

func TestKillerUnchangedWhenSameMoveRepeats(t *testing.T) {
	h := New()
	m := board.NewMove(board.E2, board.E4, board.Pawn)

	h.Update(board.White, m, 4, 1, nil, board.NoMove, board.NoMove)
	h.Update(board.White, m, 4, 1, nil, board.NoMove, board.NoMove)

	assert.Equal(t, m, h.Killer1(1))
	assert.Equal(t, board.NoMove, h.Killer2(1))
}

func TestCounterMoveRecordedAgainstParent(t *testing.T) {
	h := New()
	parent := board.NewMove(board.E7, board.E5, board.Pawn)
	reply := board.NewMove(board.G1, board.F3, board.Knight)

	h.Update(board.White, reply, 4, 1, nil, parent, board.NoMove)

	assert.Equal(t, reply, h.Counter(parent))
	assert.Equal(t, board.NoMove, h.Counter(board.NewMove(board.D7, board.D5, board.Pawn)))
}

func TestClearResetsEverything(t *testing.T) {
	h := New()
	m := board.NewMove(board.E2, board.E4, board.Pawn)
	h.Update(board.White, m, 4, 0, nil, board.NoMove, board.NoMove)
	assert.NotEqual(t, 0, h.Score(board.White, m, board.NoMove, board.NoMove))

	h.Clear()

	assert.Equal(t, 0, h.Score(board.White, m, board.NoMove, board.NoMove))
	assert.Equal(t, board.NoMove, h.Killer1(0))
}
