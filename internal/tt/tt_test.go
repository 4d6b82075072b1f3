package tt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berserk-go/berserk/internal/board"
)

func TestProbeMiss(t *testing.T) {
	table := NewTable(1)
	_, ok := table.Probe(0x1234567890abcdef)
	assert.False(t, ok)
}

func TestPutThenProbeRoundTrips(t *testing.T) {
	table := NewTable(1)
	hash := uint64(0xdeadbeef12345678)
	move := board.NewMove(board.E2, board.E4, board.Pawn)

	table.Put(hash, 6, 123, 45, Exact, move, 0)

	entry, ok := table.Probe(hash)
	require.True(t, ok)
	assert.Equal(t, move, entry.Move)
	assert.Equal(t, int16(123), entry.Score)
	assert.Equal(t, int16(45), entry.Eval)
	assert.Equal(t, int8(6), entry.Depth)
	assert.Equal(t, Exact, entry.Flag)
}

func TestPutRefusesShallowOverwriteUnlessExact(t *testing.T) {
	table := NewTable(1)
	hash := uint64(0x1111111122222222)
	move := board.NewMove(board.E2, board.E4, board.Pawn)

	table.Put(hash, 20, 10, 10, Lower, move, 0)
	// A much shallower, non-exact entry must not clobber the deep one.
	table.Put(hash, 1, -10, -10, Upper, board.NewMove(board.D2, board.D4, board.Pawn), 0)

	entry, ok := table.Probe(hash)
	require.True(t, ok)
	assert.Equal(t, int8(20), entry.Depth)
	assert.Equal(t, move, entry.Move)

	// An exact entry is always allowed through regardless of depth.
	table.Put(hash, 1, 7, 7, Exact, board.NewMove(board.D2, board.D4, board.Pawn), 0)
	entry, ok = table.Probe(hash)
	require.True(t, ok)
	assert.Equal(t, int8(1), entry.Depth)
	assert.Equal(t, Exact, entry.Flag)
}

func TestMateScoreShiftedOnStoreAndRestoredOnProbe(t *testing.T) {
	table := NewTable(1)
	hash := uint64(0xaaaabbbbccccdddd)
	move := board.NewMove(board.E1, board.E2, board.King)

	const mateIn3FromRoot = MateBound + 100
	const ply = 4

	table.Put(hash, 10, mateIn3FromRoot, 0, Exact, move, ply)

	entry, ok := table.Probe(hash)
	require.True(t, ok)
	// Stored relative to the root the entry was written at...
	assert.Equal(t, int16(mateIn3FromRoot+ply), entry.Score)
	// ...and AdjustedScore converts it back for a probe at the same ply.
	assert.Equal(t, int16(mateIn3FromRoot), entry.AdjustedScore(ply))
}

func TestNegativeMateScoreShift(t *testing.T) {
	table := NewTable(1)
	hash := uint64(0x0101020203030404)
	move := board.NewMove(board.E1, board.E2, board.King)

	const gettingMatedIn5 = -(MateBound + 50)
	const ply = 2

	table.Put(hash, 8, gettingMatedIn5, 0, Exact, move, ply)

	entry, ok := table.Probe(hash)
	require.True(t, ok)
	assert.Equal(t, int16(gettingMatedIn5-ply), entry.Score)
	assert.Equal(t, int16(gettingMatedIn5), entry.AdjustedScore(ply))
}

func TestNonMateScoreUnshifted(t *testing.T) {
	table := NewTable(1)
	hash := uint64(0x9999888877776666)
	move := board.NewMove(board.D2, board.D4, board.Pawn)

	table.Put(hash, 5, 55, 55, Lower, move, 7)

	entry, ok := table.Probe(hash)
	require.True(t, ok)
	assert.Equal(t, int16(55), entry.Score)
	assert.Equal(t, int16(55), entry.AdjustedScore(7))
}

func TestDistinctKeysInSameBucketCoexist(t *testing.T) {
	table := NewTable(1)
	hash := uint64(0x0badc0de0badc0de)
	move := board.NewMove(board.E2, board.E4, board.Pawn)

	table.Put(hash, 30, 0, 0, Lower, move, 0)
	table.NewSearch()

	// A different key hashing into the same bucket (same low bits, so
	// the same bucket index, but a different short hash) finds an empty
	// slot rather than evicting the deep entry.
	other := hash ^ (1 << 32)
	table.Put(other, 1, 1, 1, Lower, move, 0)

	_, ok := table.Probe(hash)
	assert.True(t, ok)
}

func TestClearRemovesAllEntries(t *testing.T) {
	table := NewTable(1)
	hash := uint64(0x1212343456567878)
	move := board.NewMove(board.E2, board.E4, board.Pawn)
	table.Put(hash, 4, 4, 4, Exact, move, 0)

	table.Clear()

	_, ok := table.Probe(hash)
	assert.False(t, ok)
}

func TestHashFullStartsAtZero(t *testing.T) {
	table := NewTable(1)
	assert.Equal(t, 0, table.HashFull())
}
