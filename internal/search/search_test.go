package search

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berserk-go/berserk/internal/board"
	"github.com/berserk-go/berserk/internal/eval"
	"github.com/berserk-go/berserk/internal/history"
	"github.com/berserk-go/berserk/internal/timeman"
	"github.com/berserk-go/berserk/internal/tt"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func newWorker() *Worker {
	var stop atomic.Bool
	return NewWorker(0, tt.NewTable(1), history.New(), eval.NewPawnCache(1), &stop)
}

func TestReportsMateScoreWhenAlreadyCheckmated(t *testing.T) {
	// Black to move after Qxf7#: Scholar's mate has already been delivered.
	pos := mustFEN(t, "r1bqkbnr/pppp1Qpp/2n5/4p3/2B1P3/8/PPPP1PPP/RNB1K1NR b KQkq - 0 1")
	w := newWorker()
	_, score := w.IterativeDeepen(pos, timeman.NewManager(timeman.Limits{MoveTime: 200 * time.Millisecond}, int(pos.SideToMove), 0), 6, nil)
	assert.LessOrEqual(t, score, -MateScore+10, "black is already checkmated, search must report a mate score")
}

func TestSearchesToRequestedDepthAndReturnsLegalMove(t *testing.T) {
	pos := board.NewPosition()
	w := newWorker()
	move, _ := w.IterativeDeepen(pos, timeman.NewManager(timeman.Limits{MoveTime: 300 * time.Millisecond}, int(pos.SideToMove), 0), 5, nil)

	legal := pos.GenerateLegalMoves()
	found := false
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i) == move {
			found = true
			break
		}
	}
	assert.True(t, found, "best move returned must be legal in the root position")
}

func TestStopFlagUnwindsQuickly(t *testing.T) {
	pos := board.NewPosition()
	var stop atomic.Bool
	w := NewWorker(0, tt.NewTable(1), history.New(), eval.NewPawnCache(1), &stop)
	stop.Store(true)

	tm := timeman.NewManager(timeman.Limits{MoveTime: time.Hour}, int(pos.SideToMove), 0)
	move, _ := w.IterativeDeepen(pos, tm, 20, nil)
	assert.Equal(t, board.NoMove, move, "a pre-stopped search should complete no iteration")
}

func TestQuiescenceFindsWinningCapture(t *testing.T) {
	// White to move, the undefended black queen on d8 hangs to the queen on d1.
	pos := mustFEN(t, "3q3k/8/8/8/8/8/8/3QK3 w - - 0 1")
	w := newWorker()
	score := w.negamax(pos, 1, 0, -Infinity, Infinity, board.NoMove, false)
	assert.Greater(t, score, eval.QueenValue-50, "winning the queen must show up in the score")
}

func TestDrawDetectionByFiftyMoveRule(t *testing.T) {
	pos := mustFEN(t, "k7/8/8/8/8/8/8/K7 w - - 99 60")
	assert.True(t, isDraw(pos))
}

func TestDrawDetectionByInsufficientMaterial(t *testing.T) {
	pos := mustFEN(t, "k7/8/8/8/8/8/8/K7 w - - 0 1")
	assert.True(t, isDraw(pos))
}

func TestNoDrawWithMaterialOnBoard(t *testing.T) {
	pos := board.NewPosition()
	assert.False(t, isDraw(pos))
}

func TestStalemateScoresAsDraw(t *testing.T) {
	// Classic stalemate: black king boxed in on a8, no legal moves, not in check.
	pos := mustFEN(t, "k7/8/1Q6/8/8/8/8/1K6 b - - 0 1")
	require.False(t, pos.InCheck())
	w := newWorker()
	score := w.negamax(pos, 2, 0, -Infinity, Infinity, board.NoMove, false)
	assert.Equal(t, 0, score)
}

func TestCheckmateScoresAsMate(t *testing.T) {
	// Back-rank mate: black king on h8 has no legal moves and is in check.
	pos := mustFEN(t, "R6k/8/6K1/8/8/8/8/8 b - - 0 1")
	require.True(t, pos.InCheck())
	w := newWorker()
	score := w.negamax(pos, 2, 0, -Infinity, Infinity, board.NoMove, false)
	assert.Equal(t, -MateScore, score)
}

func TestPVLineStartsWithBestMove(t *testing.T) {
	pos := board.NewPosition()
	w := newWorker()
	move, _ := w.IterativeDeepen(pos, timeman.NewManager(timeman.Limits{MoveTime: 200 * time.Millisecond}, int(pos.SideToMove), 0), 4, nil)
	line := w.PV()
	require.NotEmpty(t, line)
	assert.Equal(t, move, line[0])
}
