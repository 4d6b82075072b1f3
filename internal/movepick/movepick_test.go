package movepick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berserk-go/berserk/internal/board"
	"github.com/berserk-go/berserk/internal/history"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func collect(mp *Picker) []board.Move {
	var out []board.Move
	for {
		m := mp.Next()
		if m == board.NoMove {
			return out
		}
		out = append(out, m)
	}
}

func TestHashMoveEmittedFirst(t *testing.T) {
	pos := mustFEN(t, board.StartFEN)
	hist := history.New()
	ttMove := board.NewDoublePush(board.D2, board.D4)

	mp := New(pos, hist, ttMove, 0, board.NoMove, board.NoMove)
	moves := collect(mp)

	require.NotEmpty(t, moves)
	assert.Equal(t, ttMove, moves[0])
}

func TestIllegalHashMoveSkipped(t *testing.T) {
	pos := mustFEN(t, board.StartFEN)
	hist := history.New()
	// e2e5 is not a legal move from the start position.
	bogus := board.NewMove(board.E2, board.E5, board.Pawn)

	mp := New(pos, hist, bogus, 0, board.NoMove, board.NoMove)
	moves := collect(mp)

	for _, m := range moves {
		assert.NotEqual(t, bogus, m)
	}
	assert.Len(t, moves, 20)
}

func TestEveryLegalMoveEmittedExactlyOnce(t *testing.T) {
	pos := mustFEN(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	hist := history.New()
	mp := New(pos, hist, board.NoMove, 0, board.NoMove, board.NoMove)

	seen := map[board.Move]int{}
	for _, m := range collect(mp) {
		seen[m]++
	}

	legal := pos.GenerateLegalMoves()
	assert.Equal(t, legal.Len(), len(seen))
	for i := 0; i < legal.Len(); i++ {
		assert.Equal(t, 1, seen[legal.Get(i)])
	}
}

func TestGoodCaptureOrderedBeforeQuiet(t *testing.T) {
	// White to move, can capture a hanging knight with a pawn.
	pos := mustFEN(t, "rnbqkb1r/pppppppp/8/8/3n4/4P3/PPPP1PPP/RNBQKBNR w KQkq - 0 1")
	hist := history.New()
	mp := New(pos, hist, board.NoMove, 0, board.NoMove, board.NoMove)

	moves := collect(mp)
	capture := board.NewCapture(board.E3, board.D4, board.Pawn)
	require.Contains(t, moves, capture)

	quietIdx := -1
	for i, m := range moves {
		if m.IsQuiet() {
			quietIdx = i
			break
		}
	}
	captureIdx := -1
	for i, m := range moves {
		if m == capture {
			captureIdx = i
			break
		}
	}
	require.NotEqual(t, -1, quietIdx)
	require.NotEqual(t, -1, captureIdx)
	assert.Less(t, captureIdx, quietIdx)
}

func TestQuiescencePickerExcludesQuietMovesWhenNotInCheck(t *testing.T) {
	pos := mustFEN(t, "rnbqkb1r/pppppppp/8/8/4n3/4P3/PPPP1PPP/RNBQKBNR w KQkq - 0 1")
	mp := NewQuiescence(pos, 0)

	for _, m := range collect(mp) {
		assert.True(t, m.Tactical())
	}
}

func TestQuiescencePickerEmitsEvasionsWhenInCheck(t *testing.T) {
	// Black king in check from a white rook on e-file.
	pos := mustFEN(t, "4k3/8/8/8/8/8/4R3/4K3 b - - 0 1")
	mp := NewQuiescence(pos, 0)

	moves := collect(mp)
	assert.NotEmpty(t, moves)
	legal := pos.GenerateLegalMoves()
	assert.Equal(t, legal.Len(), len(moves))
}

func TestSkipQuietsStopsQuietGeneration(t *testing.T) {
	pos := mustFEN(t, board.StartFEN)
	hist := history.New()
	mp := New(pos, hist, board.NoMove, 0, board.NoMove, board.NoMove)
	mp.SkipQuiets()

	for _, m := range collect(mp) {
		assert.True(t, m.Tactical())
	}
}

func TestKillerNotEmittedWhenNowACapture(t *testing.T) {
	// A quiet move recorded as a killer at some other node might, on
	// this position, land on an occupied square (so GenerateLegalMoves
	// would encode it as a capture instead) or not be legal at all;
	// either way it must not be emitted verbatim as a stale quiet hint.
	pos := mustFEN(t, board.StartFEN)
	hist := history.New()
	staleKiller := board.NewMove(board.E2, board.E4, board.Pawn) // not a legal encoding: real move is a double push
	hist.Update(board.White, staleKiller, 4, 0, nil, board.NoMove, board.NoMove)

	mp := New(pos, hist, board.NoMove, 0, board.NoMove, board.NoMove)
	moves := collect(mp)

	for _, m := range moves {
		assert.NotEqual(t, staleKiller, m)
	}
}
