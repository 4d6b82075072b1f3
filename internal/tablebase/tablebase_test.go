package tablebase

import (
	"os"
	"testing"

	"github.com/berserk-go/berserk/internal/board"
)

type countingProber struct {
	calls int
}

func (cp *countingProber) Probe(pos *board.Position) ProbeResult {
	cp.calls++
	return ProbeResult{Found: true, WDL: WDLDraw, DTZ: 0}
}

func (cp *countingProber) ProbeRoot(pos *board.Position) RootResult {
	return RootResult{Found: false}
}

func (cp *countingProber) MaxPieces() int { return 6 }
func (cp *countingProber) Available() bool { return true }

func TestNoopProber(t *testing.T) {
	prober := NoopProber{}

	if prober.Available() {
		t.Error("NoopProber should not be available")
	}

	if prober.MaxPieces() != 0 {
		t.Errorf("NoopProber MaxPieces should be 0, got %d", prober.MaxPieces())
	}

	pos := board.NewPosition()
	result := prober.Probe(pos)
	if result.Found {
		t.Error("NoopProber should not find anything")
	}

	rootResult := prober.ProbeRoot(pos)
	if rootResult.Found {
		t.Error("NoopProber ProbeRoot should not find anything")
	}
}

func TestCountPieces(t *testing.T) {
	pos := board.NewPosition()
	count := CountPieces(pos)

	// Starting position has 32 pieces
	if count != 32 {
		t.Errorf("Starting position should have 32 pieces, got %d", count)
	}
}

func TestWDLToScore(t *testing.T) {
	tests := []struct {
		wdl      WDL
		ply      int
		positive bool // Should score be positive (winning)?
	}{
		{WDLWin, 0, true},
		{WDLWin, 10, true},
		{WDLCursedWin, 0, true},
		{WDLDraw, 0, false},
		{WDLBlessedLoss, 0, false},
		{WDLLoss, 0, false},
	}

	for _, tc := range tests {
		score := WDLToScore(tc.wdl, tc.ply)
		isPositive := score > 0

		if tc.positive && !isPositive {
			t.Errorf("WDL %d at ply %d should give positive score, got %d", tc.wdl, tc.ply, score)
		}
		if !tc.positive && tc.wdl != WDLDraw && isPositive {
			t.Errorf("WDL %d at ply %d should give non-positive score, got %d", tc.wdl, tc.ply, score)
		}
	}
}

func TestCachedProberAvoidsRepeatedInnerProbes(t *testing.T) {
	inner := &countingProber{}
	cached := NewCachedProber(inner, 1000)

	pos := board.NewPosition()
	for i := 0; i < 5; i++ {
		cached.Probe(pos)
	}
	cached.cache.Wait()

	if inner.calls != 1 {
		t.Errorf("expected inner prober to be called once, got %d calls", inner.calls)
	}
}

func TestPersistentProberSurvivesReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "berserk-tb-cache-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(dir)

	inner := &countingProber{}
	pp, err := NewPersistentProber(inner, dir)
	if err != nil {
		t.Fatalf("NewPersistentProber: %v", err)
	}

	pos := board.NewPosition()
	first := pp.Probe(pos)
	if !first.Found {
		t.Fatal("expected first probe to find a result")
	}
	pp.Close()

	reopened, err := NewPersistentProber(inner, dir)
	if err != nil {
		t.Fatalf("reopen NewPersistentProber: %v", err)
	}
	defer reopened.Close()

	second := reopened.Probe(pos)
	if !second.Found || second.WDL != first.WDL {
		t.Errorf("expected cached result to survive reopen, got %+v", second)
	}
	if inner.calls != 1 {
		t.Errorf("expected persistent cache hit to skip the inner prober on reopen, got %d calls", inner.calls)
	}
}
