package tablebase

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/berserk-go/berserk/internal/board"
)

// CachedProber wraps another prober with a bounded, concurrent cache so
// repeated probes of the same position (common across sibling search
// nodes) don't pay the underlying prober's lookup cost twice. Uses the
// same ristretto cache the evaluator's pawn-structure cache uses
// (internal/eval.PawnCache), rather than the teacher's hand-rolled
// map+RWMutex with a "clear half the entries on full" eviction policy.
type CachedProber struct {
	inner Prober
	cache *ristretto.Cache[uint64, ProbeResult]
}

// NewCachedProber creates a cached prober wrapping the given prober.
// cacheSize is an approximate entry-count budget; ristretto sizes its
// internal structures from NumCounters using the usual 10x rule.
func NewCachedProber(inner Prober, cacheSize int) *CachedProber {
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, ProbeResult]{
		NumCounters: int64(cacheSize) * 10,
		MaxCost:     int64(cacheSize),
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}
	return &CachedProber{inner: inner, cache: cache}
}

// NewCachedLichessProber creates a cached Lichess prober with default cache size.
func NewCachedLichessProber() *CachedProber {
	return NewCachedProber(NewLichessProber(), 100000)
}

func (cp *CachedProber) Probe(pos *board.Position) ProbeResult {
	if result, ok := cp.cache.Get(pos.Hash); ok {
		return result
	}
	result := cp.inner.Probe(pos)
	cp.cache.Set(pos.Hash, result, 1)
	return result
}

func (cp *CachedProber) ProbeRoot(pos *board.Position) RootResult {
	// Root probing is not cached: it needs full move info, and happens
	// at most once per search rather than once per node.
	return cp.inner.ProbeRoot(pos)
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

func (cp *CachedProber) Available() bool {
	return cp.inner.Available()
}

// Metrics exposes ristretto's hit/miss counters for UCI "info string"
// diagnostics, replacing the teacher's manually tracked hits/misses.
func (cp *CachedProber) Metrics() *ristretto.Metrics {
	return cp.cache.Metrics
}

// Clear discards every cached entry.
func (cp *CachedProber) Clear() {
	cp.cache.Clear()
}
