// Package tt implements the engine's transposition table: a fixed-size,
// bucketed hash table shared by every search worker without locking.
// Entries are written and read with plain atomic loads/stores rather
// than a mutex, so a reader can observe a torn write from a concurrent
// Put. The short hash check rejects a slot whose hash word belongs to
// another position; it cannot detect a data word written by a
// different Put than the hash word it was read with.
package tt

import (
	"math/bits"
	"sync/atomic"

	"github.com/berserk-go/berserk/internal/board"
)

// Flag classifies the kind of bound an entry's score represents.
type Flag uint8

const (
	Unknown Flag = 0
	Lower   Flag = 1 // fail-high, score is a lower bound
	Upper   Flag = 2 // fail-low, score is an upper bound
	Exact   Flag = 4
)

// Score bounds mirrored from the reference engine's search constants.
// A score beyond MateBound encodes a forced mate a certain number of
// plies away and must be shifted before storage and after retrieval so
// that it means the same thing regardless of the root's distance.
const (
	MateBound = 30000
	NoScore   = 32257
)

const bucketSize = 4

// Entry is a materialized, torn-read-free snapshot of one TT slot.
type Entry struct {
	Hash  uint32
	Move  board.Move
	Eval  int16
	Score int16
	Depth int8
	Flag  Flag
	Age   uint8
}

// AdjustedScore undoes the mate-distance shift applied when the entry
// was stored, returning a score relative to the current search root.
func (e Entry) AdjustedScore(ply int) int16 {
	switch {
	case e.Score > MateBound:
		return e.Score - int16(ply)
	case e.Score < -MateBound:
		return e.Score + int16(ply)
	default:
		return e.Score
	}
}

// slot packs one TTEntry into two lock-free words:
//
//	w0: hash(32) | move(32)
//	w1: score(16) | eval(16) | depth(8) | flag(8) | age(8)
//
// Go has no way to atomically store a struct wider than 8 bytes, so a
// 16-byte entry becomes two independent atomic words instead of the
// reference engine's single aligned struct store. Readers can observe
// w0 from one Put and w1 from another. The short-hash comparison in
// Probe/Put checks only w0, so such a mixed pair is returned as a hit
// when w0 matches.
type slot struct {
	w0 atomic.Uint64
	w1 atomic.Uint64
}

type bucket struct {
	slots [bucketSize]slot
}

// Table is the shared transposition table. The zero value is not
// usable; construct one with NewTable.
type Table struct {
	buckets []bucket
	mask    uint64
	age     atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewTable allocates a table sized to approximately sizeMB megabytes,
// rounded down to a power-of-two bucket count so probes can use a mask
// instead of a modulo.
func NewTable(sizeMB int) *Table {
	if sizeMB < 1 {
		sizeMB = 1
	}
	const bucketBytes = bucketSize * 16 // two uint64 words per slot
	wanted := uint64(sizeMB) * 1024 * 1024 / bucketBytes
	numBuckets := roundDownPow2(wanted)
	if numBuckets == 0 {
		numBuckets = 1
	}
	return &Table{
		buckets: make([]bucket, numBuckets),
		mask:    numBuckets - 1,
	}
}

func roundDownPow2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return uint64(1) << (bits.Len64(n) - 1)
}

func pack0(hash uint32, move board.Move) uint64 {
	return uint64(hash) | uint64(move)<<32
}

func unpack0(w uint64) (hash uint32, move board.Move) {
	return uint32(w), board.Move(w >> 32)
}

func pack1(score, eval int16, depth int8, flag Flag, age uint8) uint64 {
	return uint64(uint16(score)) |
		uint64(uint16(eval))<<16 |
		uint64(uint8(depth))<<32 |
		uint64(uint8(flag))<<40 |
		uint64(age)<<48
}

func unpack1(w uint64) (score, eval int16, depth int8, flag Flag, age uint8) {
	score = int16(uint16(w))
	eval = int16(uint16(w >> 16))
	depth = int8(uint8(w >> 32))
	flag = Flag(uint8(w >> 40))
	age = uint8(w >> 48)
	return
}

// Prefetch is a documented no-op. The reference engine issues a
// hardware prefetch for the bucket about to be probed; Go exposes no
// portable cache-prefetch intrinsic without cgo or platform-specific
// assembly, and none of the example Go engines in the corpus provide
// one either, so this is a standard-library ceiling rather than an
// avoided dependency. Kept as a method so callers can call it
// unconditionally at the point the reference engine does, leaving a
// seam if a future build tag adds a real prefetch.
func (t *Table) Prefetch(hash uint64) {}

// Probe looks up hash in the table. On a hit it refreshes the entry's
// age (mirroring the reference engine's TTProbe touching the bucket
// entry) so that a position revisited within the same search is not
// mistaken for stale by the replacement policy.
func (t *Table) Probe(hash uint64) (Entry, bool) {
	t.probes.Add(1)
	b := &t.buckets[hash&t.mask]
	shortHash := uint32(hash >> 32)

	for i := range b.slots {
		w0 := b.slots[i].w0.Load()
		h, move := unpack0(w0)
		if h != shortHash {
			continue
		}

		w1 := b.slots[i].w1.Load()
		score, eval, depth, flag, _ := unpack1(w1)

		age := uint8(t.age.Load())
		b.slots[i].w1.Store(pack1(score, eval, depth, flag, age))

		t.hits.Add(1)
		return Entry{Hash: h, Move: move, Score: score, Eval: eval, Depth: depth, Flag: flag, Age: age}, true
	}

	return Entry{}, false
}

// Put stores a search result, applying the reference engine's
// replacement policy: prefer an empty slot, then a slot already
// holding this position (refusing a non-exact write whose depth is less
// than half the stored entry's), then the slot with the lowest
// depth/age-adjusted priority in the bucket.
func (t *Table) Put(hash uint64, depth int8, score, eval int16, flag Flag, move board.Move, ply int) {
	if score > MateBound {
		score += int16(ply)
	} else if score < -MateBound {
		score -= int16(ply)
	}

	b := &t.buckets[hash&t.mask]
	shortHash := uint32(hash >> 32)
	age := uint8(t.age.Load())

	_, _, bestDepth, _, bestAge := unpack1(b.slots[0].w1.Load())
	bestPriority := int32(bestDepth) - int32(256+int(age)-int(bestAge))*4
	replaceIdx := 0

	for i := 0; i < bucketSize; i++ {
		h, _ := unpack0(b.slots[i].w0.Load())

		if h == 0 {
			replaceIdx = i
			break
		}

		if h == shortHash {
			_, _, existingDepth, _, _ := unpack1(b.slots[i].w1.Load())
			if int(existingDepth) > int(depth)*2 && flag != Exact {
				return
			}
			replaceIdx = i
			break
		}

		_, _, d, _, a := unpack1(b.slots[i].w1.Load())
		priority := int32(d) - int32(256+int(age)-int(a))*4
		if priority < bestPriority {
			bestPriority = priority
			replaceIdx = i
		}
	}

	b.slots[replaceIdx].w0.Store(pack0(shortHash, move))
	b.slots[replaceIdx].w1.Store(pack1(score, eval, depth, flag, age))
}

// NewSearch bumps the generation counter. Call once per "go" command so
// the replacement policy can tell entries from the current search apart
// from stale ones left by an earlier position.
func (t *Table) NewSearch() {
	t.age.Add(1)
}

// Clear zeroes every bucket, discarding all stored entries.
func (t *Table) Clear() {
	for i := range t.buckets {
		for j := range t.buckets[i].slots {
			t.buckets[i].slots[j].w0.Store(0)
			t.buckets[i].slots[j].w1.Store(0)
		}
	}
	t.age.Store(0)
	t.hits.Store(0)
	t.probes.Store(0)
}

// HashFull reports, in permille, how much of the table holds entries
// from the current search generation — sampling the first 250 buckets
// (1000 entries) the way the reference engine's TTFull does, rather than scanning the
// whole table on every "info" line.
func (t *Table) HashFull() int {
	sample := len(t.buckets)
	if sample > 250 {
		sample = 250
	}
	if sample == 0 {
		return 0
	}

	age := uint8(t.age.Load())
	used, total := 0, 0
	for i := 0; i < sample; i++ {
		for j := range t.buckets[i].slots {
			total++
			h, _ := unpack0(t.buckets[i].slots[j].w0.Load())
			if h == 0 {
				continue
			}
			_, _, _, _, a := unpack1(t.buckets[i].slots[j].w1.Load())
			if a == age {
				used++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return used * 1000 / total
}

// HitRate returns the fraction of probes that found a matching entry,
// as a percentage.
func (t *Table) HitRate() float64 {
	probes := t.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(t.hits.Load()) / float64(probes) * 100
}

// Buckets returns the number of buckets allocated (bucketSize entries
// each), for sizing reports.
func (t *Table) Buckets() uint64 {
	return t.mask + 1
}
