// Package engine wires the search core to the rest of the program: it
// owns the shared transposition table, the pool of search workers, and
// the opening book / tablebase probers that can shortcut a search
// entirely. internal/uci is the only caller.
package engine

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/berserk-go/berserk/internal/board"
	"github.com/berserk-go/berserk/internal/book"
	"github.com/berserk-go/berserk/internal/eval"
	"github.com/berserk-go/berserk/internal/history"
	"github.com/berserk-go/berserk/internal/search"
	"github.com/berserk-go/berserk/internal/tablebase"
	"github.com/berserk-go/berserk/internal/threadpool"
	"github.com/berserk-go/berserk/internal/timeman"
	"github.com/berserk-go/berserk/internal/tt"
)

// NumWorkers is the default thread count (matches CPU cores), used when
// the UCI client never sends a "Threads" setoption.
var NumWorkers = runtime.GOMAXPROCS(0)

// Info reports one completed iterative-deepening depth from the main
// worker, enriched with hash-table fullness for the UCI "info" line.
type Info struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Elapsed  time.Duration
	PV       []board.Move
	HashFull int
}

// Limits mirrors timeman.Limits plus the depth/node caps a "go" command
// can carry; Engine translates it into a timeman.Manager per search.
type Limits struct {
	timeman.Limits
	Depth int    // 0 = no explicit depth cap
	Nodes uint64 // soft node budget; 0 = unbounded (not yet enforced mid-search)
}

// Engine is the chess engine: a shared transposition table, a pool of
// search.Worker instances (one per pool slot, each with its own private
// history and pawn-structure cache per spec's Lazy-SMP model), and the
// opening book / tablebase externals that can answer without a search.
type Engine struct {
	tt      *tt.Table
	pool    *threadpool.Pool
	workers []*search.Worker

	book      *book.Book
	tablebase tablebase.Prober

	syzygyProbeDepth int

	OnInfo func(Info)
	log    logr.Logger
}

// New creates an engine with the given hash size (MB) and thread count.
// threads is clamped to at least 1.
func New(hashMB, threads int) *Engine {
	if threads < 1 {
		threads = 1
	}

	table := tt.NewTable(hashMB)
	pool := threadpool.New(threads)

	workers := make([]*search.Worker, threads)
	for i := range workers {
		var stop atomic.Bool
		workers[i] = search.NewWorker(i, table, history.New(), eval.NewPawnCache(4), &stop)
	}

	return &Engine{
		tt:               table,
		pool:             pool,
		workers:          workers,
		syzygyProbeDepth: 1,
		log:              stdr.New(nil).WithName("engine"),
	}
}

// SetLogger overrides the engine's diagnostic logger.
func (e *Engine) SetLogger(log logr.Logger) {
	e.log = log.WithName("engine")
}

// SetBook installs an opening book; a nil book disables book probing.
func (e *Engine) SetBook(b *book.Book) { e.book = b }

// HasBook reports whether an opening book is installed.
func (e *Engine) HasBook() bool { return e.book != nil }

// SetTablebase installs a tablebase prober; a nil prober disables probing.
func (e *Engine) SetTablebase(tb tablebase.Prober) { e.tablebase = tb }

// HasTablebase reports whether a tablebase prober is installed and ready.
func (e *Engine) HasTablebase() bool { return e.tablebase != nil && e.tablebase.Available() }

// SetSyzygyProbeDepth records the SyzygyProbeDepth option. The value is
// stored but not read: the tablebase is probed only at the root, in
// Search, and never inside the search tree.
func (e *Engine) SetSyzygyProbeDepth(depth int) {
	if depth < 1 {
		depth = 1
	}
	e.syzygyProbeDepth = depth
}

// Resize replaces the transposition table with one of the given size,
// reconstructing every worker to share the new table. Any in-flight
// search must be stopped first.
func (e *Engine) Resize(hashMB int) {
	table := tt.NewTable(hashMB)
	for i := range e.workers {
		e.workers[i] = search.NewWorker(i, table, history.New(), eval.NewPawnCache(4), new(atomic.Bool))
	}
	e.tt = table
}

// Threads reports the current worker count.
func (e *Engine) Threads() int { return len(e.workers) }

// SetThreads replaces the worker pool with one of the given size,
// preserving the existing transposition table. Any in-flight search
// must be stopped first; accumulated per-worker history is lost since
// each new worker starts with an empty history.Tables.
func (e *Engine) SetThreads(threads int) {
	if threads < 1 {
		threads = 1
	}
	if threads == len(e.workers) {
		return
	}
	e.pool.Close()
	e.pool = threadpool.New(threads)
	workers := make([]*search.Worker, threads)
	for i := range workers {
		workers[i] = search.NewWorker(i, e.tt, history.New(), eval.NewPawnCache(4), new(atomic.Bool))
	}
	e.workers = workers
}

// NewGame clears all accumulated search state between games, per UCI's
// "ucinewgame" contract.
func (e *Engine) NewGame() {
	e.tt.Clear()
	for _, w := range e.workers {
		w.ResetForNewGame()
	}
}

// Stop signals every worker to unwind at its next periodic check.
func (e *Engine) Stop() { e.pool.Stop() }

// Close releases the worker pool's goroutines.
func (e *Engine) Close() { e.pool.Close() }

// Perft counts leaf nodes at depth using plain recursive move
// generation, bypassing search/eval entirely (a debug/benchmark tool,
// not part of the search path).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		if undo.Valid {
			nodes += e.Perft(pos, depth-1)
		}
		pos.UnmakeMove(m, undo)
	}
	return nodes
}

// Search resolves a "go" command: it tries the opening book, then a
// tablebase root probe, and only runs the search pool if neither
// shortcuts the decision. pos is not mutated; each worker searches its
// own copy.
func (e *Engine) Search(pos *board.Position, limits Limits) board.Move {
	e.tt.NewSearch()

	if e.book != nil {
		if mv, ok := e.book.Probe(pos); ok && mv != board.NoMove {
			e.log.Info("book move", "move", mv.String())
			return mv
		}
	}

	if e.tablebase != nil && e.tablebase.Available() {
		if root := e.tablebase.ProbeRoot(pos); root.Found && root.Move != board.NoMove {
			e.log.Info("tablebase move", "move", root.Move.String(), "wdl", root.WDL, "dtz", root.DTZ)
			return root.Move
		}
	}

	maxDepth := limits.Depth
	if maxDepth <= 0 || maxDepth > search.MaxPly-1 {
		maxDepth = search.MaxPly - 1
	}

	us := int(pos.SideToMove)
	ply := (pos.FullMoveNumber - 1) * 2
	if pos.SideToMove == board.Black {
		ply++
	}

	var bestMove board.Move

	err := e.pool.Start(func(id int, stop *atomic.Bool) {
		w := e.workers[id]
		w.SetStop(stop)
		tm := timeman.NewManager(limits.Limits, us, ply)
		workerPos := pos.Copy()

		var onInfo func(search.Info)
		if id == 0 {
			onInfo = func(info search.Info) {
				if e.OnInfo != nil {
					e.OnInfo(Info{
						Depth:    info.Depth,
						SelDepth: info.SelDepth,
						Score:    info.Score,
						Nodes:    info.Nodes,
						Elapsed:  info.Elapsed,
						PV:       info.PV,
						HashFull: e.tt.HashFull(),
					})
				}
			}
		}

		move, _ := w.IterativeDeepen(workerPos, tm, maxDepth, onInfo)

		if id == 0 {
			// pool.Start joins every worker before returning, so this
			// plain write is visible to the caller without a lock.
			bestMove = move
			e.pool.Stop()
		}
	})
	if err != nil {
		e.log.Error(err, "search worker pool")
	}

	return bestMove
}
