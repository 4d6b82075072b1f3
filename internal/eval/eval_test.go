package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berserk-go/berserk/internal/board"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func TestStartPositionIsRoughlyBalanced(t *testing.T) {
	pos := mustFEN(t, board.StartFEN)
	score := Evaluate(pos, nil)
	assert.Less(t, abs(score), 50, "start position should be near-equal plus a small tempo bonus")
}

func TestExtraQueenIsDecisive(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/8/8/8/8/QQQQK3 w - - 0 1")
	score := Evaluate(pos, nil)
	assert.Greater(t, score, 2000)
}

func TestEvaluationIsSideToMoveRelative(t *testing.T) {
	white := mustFEN(t, "4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	black := mustFEN(t, "4k3/4p3/8/8/8/8/8/4K3 b - - 0 1")
	assert.Equal(t, Evaluate(white, nil), Evaluate(black, nil))
}

func TestPawnCacheMatchesUncachedEvaluation(t *testing.T) {
	pos := mustFEN(t, "rnbqkbnr/pp1ppppp/8/2p5/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2")
	pc := NewPawnCache(1)

	cached := Evaluate(pos, pc)
	uncached := Evaluate(pos, nil)
	assert.Equal(t, uncached, cached)

	// Second call should hit the cache and still agree.
	assert.Equal(t, uncached, Evaluate(pos, pc))
}

func TestDoubledPawnsArePenalized(t *testing.T) {
	doubled := mustFEN(t, "4k3/8/8/8/4P3/8/4P3/4K3 w - - 0 1")
	spread := mustFEN(t, "4k3/8/8/8/3P4/8/4P3/4K3 w - - 0 1")
	assert.Less(t, Evaluate(doubled, nil), Evaluate(spread, nil))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
