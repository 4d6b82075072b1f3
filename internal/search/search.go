// Package search implements the engine's recursive core: negamax with
// alpha-beta pruning, quiescence search, iterative deepening and
// aspiration windows. One Worker runs one line of iterative deepening
// against a shared transposition table; a pool of Workers (see
// internal/threadpool) is what gives the engine its Lazy-SMP-style
// parallelism.
package search

import (
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/berserk-go/berserk/internal/board"
	"github.com/berserk-go/berserk/internal/eval"
	"github.com/berserk-go/berserk/internal/history"
	"github.com/berserk-go/berserk/internal/movepick"
	"github.com/berserk-go/berserk/internal/timeman"
	"github.com/berserk-go/berserk/internal/tt"
)

// MaxPly bounds every per-ply stack the search keeps. Mirrors
// history.MaxPly so move/eval/reduction stacks and the history tables
// they feed never disagree about how deep a line can run.
const MaxPly = history.MaxPly

// Score bounds. MateScore must exceed tt.MateBound so a found-mate
// score is recognized by the TT's ply-shift logic on store/retrieve.
const (
	Infinity  = 32001
	MateScore = 32000
)

// DELTA_CUTOFF, SEE_PRUNE_CUTOFF and SEE_PRUNE_CAPTURE_CUTOFF are
// carried over from the reference engine's search.h verbatim: quiet-move
// SEE pruning is quadratic in depth, capture SEE pruning is linear.
const (
	deltaCutoff          = 150
	seePruneCutoff       = 20
	seePruneCaptureCutoff = 90
	aspirationWindow     = 8
)

var victimValue = [6]int{eval.PawnValue, eval.KnightValue, eval.BishopValue, eval.RookValue, eval.QueenValue, 0}

var futilityMargin = [6]int{0, 200, 300, 500, 700, 900}
var lmpThreshold = [8]int{0, 5, 8, 13, 18, 25, 34, 45}

// lmrTable[depth][moveNumber] precomputes the literal reduction formula
// from spec.md's move-loop step: 0.77 + ln(d)*ln(m)/2.36.
var lmrTable [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrTable[d][m] = int(0.77 + math.Log(float64(d))*math.Log(float64(m))/2.36)
		}
	}
}

// PVTable mirrors the reference engine's triangular principal-variation
// array: moves[ply] holds the best line found from ply onward, valid up
// to length[ply].
type PVTable struct {
	moves  [MaxPly][MaxPly]board.Move
	length [MaxPly]int
}

func (pv *PVTable) update(ply int, move board.Move) {
	pv.moves[ply][ply] = move
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = pv.length[ply+1]
}

// Line returns the best line found from the root.
func (pv *PVTable) Line() []board.Move {
	return pv.moves[0][:pv.length[0]]
}

// Info is published once per completed iterative-deepening depth.
type Info struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Elapsed  time.Duration
	PV       []board.Move
}

// Worker runs one iterative-deepening line against a shared TT and
// history-less-shared (private) move-ordering tables. id 0 is
// conventionally the main worker that owns the time budget; helper
// workers (id > 0) differ from it only by their starting depth
// (1 + id%3). Root move order is the same for every worker.
type Worker struct {
	id  int
	tt  *tt.Table
	hist *history.Tables
	pawnCache *eval.PawnCache
	stop *atomic.Bool
	rng  *rand.Rand

	nodes    uint64
	selDepth int
	rootDelta int

	pv         PVTable
	evalStack  [MaxPly]int
	moveStack  [MaxPly]board.Move
	reduction  [MaxPly]int

	prevBestMove board.Move
}

// NewWorker builds a worker around the given tt, hist and pawnCache.
// Only tt is shared across the pool; spec.md §4.2/§5 calls for private
// history per worker, so callers construct one history.Tables (and one
// pawn cache) per Worker, not one for the whole pool.
func NewWorker(id int, table *tt.Table, hist *history.Tables, pawnCache *eval.PawnCache, stop *atomic.Bool) *Worker {
	return &Worker{
		id:        id,
		tt:        table,
		hist:      hist,
		pawnCache: pawnCache,
		stop:      stop,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*2654435761)),
	}
}

func (w *Worker) ID() int         { return w.id }
func (w *Worker) Nodes() uint64   { return w.nodes }
func (w *Worker) SelDepth() int   { return w.selDepth }
func (w *Worker) PV() []board.Move { return w.pv.Line() }

// SetStop rebinds the worker's shared stop flag. The thread pool hands
// out the same *atomic.Bool for the lifetime of the pool, but a worker
// constructed once and reused across many "go" commands still needs the
// callback-supplied pointer wired in at the start of each cycle.
func (w *Worker) SetStop(stop *atomic.Bool) { w.stop = stop }

// ResetForNewGame clears everything that should not carry across a
// "ucinewgame": accumulated history/killers and the previous best-move
// stability tracking used by the aspiration-window/time-management
// heuristics. The shared transposition table is cleared separately by
// its owner.
func (w *Worker) ResetForNewGame() {
	w.hist.Clear()
	w.prevBestMove = board.NoMove
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// isDraw reports the "immediate draw" conditions from spec.md §4.4.2
// step 2 that don't require a move-generation pass (stalemate is caught
// separately, once the move loop finds zero legal moves).
func isDraw(pos *board.Position) bool {
	if pos.HalfMoveClock >= 100 {
		return true
	}
	if pos.IsInsufficientMaterial() {
		return true
	}
	return pos.IsRepetition()
}

// drawScore returns +2 or -2 by the parity of the worker's node count,
// so a worker doesn't treat every drawn line as exactly equivalent and
// get stuck failing to distinguish between repetitions (spec.md §4.4.2
// step 2).
func (w *Worker) drawScore() int {
	if w.nodes&1 != 0 {
		return 2
	}
	return -2
}

// IterativeDeepen runs depth = 1, 2, ... against pos until tm's soft
// deadline is exhausted or maxDepth is reached, publishing info after
// every completed depth. It returns the best move and score from the
// deepest completed iteration.
func (w *Worker) IterativeDeepen(pos *board.Position, tm *timeman.Manager, maxDepth int, onInfo func(Info)) (board.Move, int) {
	startDepth := 1
	if w.id > 0 {
		startDepth = 1 + w.id%3
	}

	var bestMove board.Move
	bestScore := 0
	prevScore := 0
	stableIterations := 0
	changedIterations := 0
	clockDerivedSoft := tm.SoftDeadline()

	for depth := startDepth; depth <= maxDepth; depth++ {
		if w.stop.Load() || !tm.ShouldStartNewIteration() {
			break
		}

		w.selDepth = 0
		w.rootDelta = Infinity

		alpha, beta := -Infinity, Infinity
		delta := aspirationWindow
		if depth >= 4 {
			alpha = clampInt(prevScore-delta, -Infinity, Infinity)
			beta = clampInt(prevScore+delta, -Infinity, Infinity)
			w.rootDelta = beta - alpha
		}

		var score int
		for {
			score = w.negamax(pos, depth, 0, alpha, beta, board.NoMove, false)
			if w.stop.Load() {
				break
			}
			if score <= alpha {
				beta = (alpha + beta) / 2
				alpha = clampInt(score-delta, -Infinity, Infinity)
				delta += delta
			} else if score >= beta {
				beta = clampInt(score+delta, -Infinity, Infinity)
				delta += delta
			} else {
				break
			}
			w.rootDelta = beta - alpha
		}

		if w.stop.Load() && depth > startDepth {
			break
		}

		line := w.pv.Line()
		if len(line) > 0 {
			bestMove = line[0]
		}
		bestScore = score

		if depth > startDepth {
			if bestMove == w.prevBestMove && abs(score-prevScore) <= aspirationWindow {
				stableIterations++
				changedIterations = 0
			} else {
				changedIterations++
				stableIterations = 0
			}
		}
		w.prevBestMove = bestMove
		prevScore = score

		if stableIterations > 0 {
			tm.AdjustForStability(stableIterations)
		}
		if changedIterations > 0 {
			tm.AdjustForInstability(changedIterations, clockDerivedSoft)
		}

		if onInfo != nil {
			onInfo(Info{Depth: depth, SelDepth: w.selDepth, Score: score, Nodes: w.nodes, Elapsed: tm.Elapsed(), PV: append([]board.Move(nil), line...)})
		}

		if tm.ShouldStopHard() {
			break
		}
	}

	return bestMove, bestScore
}

// negamax implements spec.md §4.4.2's ordered steps. excludedMove
// supports singular-extension verification search: the move is hidden
// from the move loop without disturbing the TT probe above it.
func (w *Worker) negamax(pos *board.Position, depth, ply int, alpha, beta int, excludedMove board.Move, cutNode bool) int {
	if ply >= MaxPly-1 {
		return eval.Evaluate(pos, w.pawnCache)
	}

	pvNode := beta-alpha > 1
	w.pv.length[ply] = ply
	if ply > w.selDepth {
		w.selDepth = ply
	}

	// 1. Stop check.
	if w.nodes&1023 == 0 && w.stop.Load() {
		return 0
	}
	w.nodes++

	// 2. Immediate draws.
	if ply > 0 && isDraw(pos) {
		return w.drawScore()
	}

	// 3. Mate-distance pruning.
	if ply > 0 {
		matedScore := -MateScore + ply
		mateScore := MateScore - ply - 1
		if matedScore > alpha {
			alpha = matedScore
		}
		if mateScore < beta {
			beta = mateScore
		}
		if alpha >= beta {
			return alpha
		}
	}

	// 4. TT probe.
	var ttMove board.Move
	ttPv := pvNode
	entry, found := w.tt.Probe(pos.Hash)
	if found {
		ttMove = entry.Move
		if !pvNode && int(entry.Depth) >= depth && excludedMove == board.NoMove {
			score := int(entry.AdjustedScore(ply))
			cutoff := false
			switch entry.Flag {
			case tt.Exact:
				cutoff = true
			case tt.Lower:
				cutoff = score >= beta
			case tt.Upper:
				cutoff = score <= alpha
			}
			if cutoff {
				if ply == 0 && ttMove != board.NoMove {
					w.pv.moves[0][0] = ttMove
					w.pv.length[0] = 1
				}
				return score
			}
		}
	}

	if depth <= 0 {
		return w.quiescence(pos, ply, alpha, beta)
	}

	inCheck := pos.InCheck()

	// 9. Internal iterative deepening (reduction form).
	if depth >= 4 && ttMove == board.NoMove && !inCheck {
		depth -= 2
	}

	extension := 0
	if inCheck {
		extension = 1
	}

	// 5. Static evaluation.
	var staticEval int
	if found {
		staticEval = int(entry.Eval)
	} else {
		staticEval = eval.Evaluate(pos, w.pawnCache)
	}
	w.evalStack[ply] = staticEval

	improving := ply >= 2 && !inCheck && staticEval > w.evalStack[ply-2]

	parent := board.NoMove
	if ply > 0 {
		parent = w.moveStack[ply-1]
	}
	grandparent := board.NoMove
	if ply > 1 {
		grandparent = w.moveStack[ply-2]
	}

	// 6. Razoring / reverse futility pruning.
	if !pvNode && !inCheck && excludedMove == board.NoMove {
		if depth <= 6 {
			rfpMargin := 80 * depth
			if !improving {
				rfpMargin -= 20
			}
			if staticEval-rfpMargin >= beta {
				return beta
			}
		}
		if depth <= 5 {
			razorMargin := 485 + 281*depth*depth
			if staticEval+razorMargin <= alpha {
				score := w.quiescence(pos, ply, alpha, beta)
				if score <= alpha {
					return score
				}
			}
		}
	}

	// 7. Null-move pruning.
	if !pvNode && !inCheck && depth >= 3 && excludedMove == board.NoMove &&
		staticEval >= beta && pos.HasNonPawnMaterial() {
		r := 7 + depth/3
		if r > depth-1 {
			r = depth - 1
		}
		undo := pos.MakeNullMove()
		w.moveStack[ply] = board.NoMove
		nullScore := -w.negamax(pos, depth-1-r, ply+1, -beta, -beta+1, board.NoMove, !cutNode)
		pos.UnmakeNullMove(undo)
		if nullScore >= beta && nullScore < MateScore-MaxPly {
			return beta
		}
	}

	// 8. Probcut.
	if !pvNode && !inCheck && depth >= 5 && excludedMove == board.NoMove && abs(beta) < MateScore-100 {
		margin := 235
		if improving {
			margin -= 63
		}
		probBeta := beta + margin
		probDepth := depth - 5 - (staticEval-beta)/315
		if probDepth < 1 {
			probDepth = 1
		}
		if probDepth > depth {
			probDepth = depth
		}

		picker := movepick.NewQuiescence(pos, probBeta-staticEval)
		for {
			m := picker.Next()
			if m == board.NoMove {
				break
			}
			if !m.IsCapture() {
				continue
			}
			undo := pos.MakeMove(m)
			if !undo.Valid {
				pos.UnmakeMove(m, undo)
				continue
			}
			w.moveStack[ply] = m
			score := -w.negamax(pos, probDepth, ply+1, -probBeta, -probBeta+1, board.NoMove, !cutNode)
			pos.UnmakeMove(m, undo)
			if score >= probBeta {
				return score
			}
		}
	}

	// 10. Singular extension setup (resolved per-move in the loop below).
	singularCandidate := board.NoMove
	singularBeta := 0
	doMargin, tripleMargin := 0, 0
	ttCapture := false
	if depth >= 6 && ttMove != board.NoMove && excludedMove == board.NoMove && found &&
		int(entry.Depth) >= depth-3 && (entry.Flag == tt.Lower || entry.Flag == tt.Exact) {
		margin := 53
		if ttPv && !pvNode {
			margin = 128
		}
		ttValue := int(entry.AdjustedScore(ply))
		singularBeta = ttValue - margin*depth/60
		singularCandidate = ttMove
		ttCapture = ttMove.IsCapture()
		doMargin = -4
		if pvNode {
			doMargin += 199
		}
		if !ttCapture {
			doMargin -= 201
		}
		tripleMargin = 73
		if pvNode {
			tripleMargin += 302
		}
		if !ttCapture {
			tripleMargin -= 248
		}
		if ttPv {
			tripleMargin += 90
		}
	}

	picker := movepick.New(pos, w.hist, ttMove, ply, parent, grandparent)

	pruneQuiets := !pvNode && !inCheck && depth <= 5 && staticEval+futilityMargin[depth] <= alpha

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := tt.Upper
	originalAlpha := alpha
	movesSearched := 0
	var quietsTried []board.Move

	for {
		move := picker.Next()
		if move == board.NoMove {
			break
		}
		if move == excludedMove {
			continue
		}

		isTactical := move.Tactical()
		isQuiet := !isTactical

		if movesSearched > 0 && !inCheck {
			if isQuiet {
				if depth <= 7 {
					threshold := lmpThreshold[clampInt(depth, 0, 7)]
					if !improving {
						threshold = threshold * 2 / 3
					}
					if movesSearched >= threshold {
						continue
					}
				}
				if pruneQuiets && bestMove != board.NoMove {
					continue
				}
				if depth <= 7 && !movepick.SEEGreaterOrEqual(pos, move, -seePruneCutoff*depth*depth) {
					continue
				}
			} else if depth <= 7 && !movepick.SEEGreaterOrEqual(pos, move, -seePruneCaptureCutoff*depth) {
				continue
			}
		}

		newDepth := depth - 1 + extension

		singularExt := 0
		if move == singularCandidate {
			singularScore := w.negamax(pos, (depth-1)/2, ply, singularBeta-1, singularBeta, ttMove, cutNode)
			if singularScore < singularBeta {
				singularExt = 1
				if singularScore < singularBeta-doMargin {
					singularExt = 2
				}
				if singularScore < singularBeta-tripleMargin {
					singularExt = 3
				}
			} else if singularBeta >= beta {
				singularExt = -2
			}
			newDepth += singularExt
		}

		undo := pos.MakeMove(move)
		if !undo.Valid {
			pos.UnmakeMove(move, undo)
			continue
		}
		w.tt.Prefetch(pos.Hash)

		// Check extension: the move just played gives check.
		if singularExt == 0 && extension == 0 && pos.InCheck() && depth <= 10 {
			newDepth++
		}

		w.moveStack[ply] = move
		movesSearched++
		if isQuiet {
			quietsTried = append(quietsTried, move)
		}

		var score int
		if movesSearched > 1 && depth >= 3 && !inCheck && isQuiet {
			d := clampInt(depth, 1, 63)
			m := clampInt(movesSearched, 1, 63)
			r := lmrTable[d][m]
			if pvNode {
				r--
			}
			if improving {
				r--
			}
			histScore := w.hist.Score(pos.SideToMove.Other(), move, parent, grandparent)
			if histScore < 0 {
				r++
			}
			r -= histScore / 4096
			if r < 0 {
				r = 0
			}
			w.reduction[ply] = r

			reducedDepth := newDepth - r
			if reducedDepth < 1 {
				reducedDepth = 1
			}
			score = -w.negamax(pos, reducedDepth, ply+1, -alpha-1, -alpha, board.NoMove, true)
			if score > alpha && reducedDepth < newDepth {
				score = -w.negamax(pos, newDepth, ply+1, -alpha-1, -alpha, board.NoMove, !cutNode)
			}
			if score > alpha && score < beta {
				score = -w.negamax(pos, newDepth, ply+1, -beta, -alpha, board.NoMove, false)
			}
		} else if movesSearched == 1 {
			score = -w.negamax(pos, newDepth, ply+1, -beta, -alpha, board.NoMove, false)
		} else {
			score = -w.negamax(pos, newDepth, ply+1, -alpha-1, -alpha, board.NoMove, !cutNode)
			if score > alpha && score < beta {
				score = -w.negamax(pos, newDepth, ply+1, -beta, -alpha, board.NoMove, false)
			}
		}

		pos.UnmakeMove(move, undo)

		if w.stop.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move
			if score > alpha {
				alpha = score
				flag = tt.Exact
				w.pv.update(ply, move)
			}
		}

		if score >= beta {
			flag = tt.Lower
			break
		}
	}

	// 11. Checkmate / stalemate.
	if movesSearched == 0 && excludedMove == board.NoMove {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}
	if movesSearched == 0 {
		// Every move was the excluded singular-search candidate: report
		// the bound the caller can still use to judge singularity.
		return alpha
	}

	// 12. History update on a quiet cutoff.
	if flag == tt.Lower && bestMove.IsQuiet() {
		w.hist.Update(pos.SideToMove, bestMove, depth, ply, quietsTried, parent, grandparent)
	}

	// 13. TT store.
	if excludedMove == board.NoMove {
		w.tt.Put(pos.Hash, int8(clampInt(depth, -128, 127)), int16(clampInt(bestScore, -32768, 32767)), int16(clampInt(staticEval, -32768, 32767)), flag, bestMove, ply)
	}
	_ = originalAlpha

	return bestScore
}

// quiescence implements spec.md §4.4.1.
func (w *Worker) quiescence(pos *board.Position, ply, alpha, beta int) int {
	if ply >= MaxPly-1 {
		return eval.Evaluate(pos, w.pawnCache)
	}
	if w.nodes&1023 == 0 && w.stop.Load() {
		return 0
	}
	w.nodes++
	if ply > w.selDepth {
		w.selDepth = ply
	}

	originalAlpha := alpha
	inCheck := pos.InCheck()

	var standPat, bestValue int
	bestMove := board.NoMove

	entry, found := w.tt.Probe(pos.Hash)
	var ttMove board.Move
	if found {
		ttMove = entry.Move
		score := int(entry.AdjustedScore(ply))
		switch entry.Flag {
		case tt.Exact:
			return score
		case tt.Lower:
			if score >= beta {
				return score
			}
		case tt.Upper:
			if score <= alpha {
				return score
			}
		}
	}

	if inCheck {
		bestValue = -MateScore + ply
		standPat = bestValue
	} else {
		if found {
			standPat = int(entry.Eval)
		} else {
			standPat = eval.Evaluate(pos, w.pawnCache)
		}
		bestValue = standPat
		if standPat >= beta {
			w.tt.Put(pos.Hash, 0, int16(clampInt(standPat, -32768, 32767)), int16(clampInt(standPat, -32768, 32767)), tt.Lower, board.NoMove, ply)
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
	}

	picker := movepick.NewQuiescence(pos, 0)
	_ = ttMove

	for {
		move := picker.Next()
		if move == board.NoMove {
			break
		}

		if !inCheck && move.IsCapture() {
			captureValue := captureMaterialValue(pos, move)
			if standPat+captureValue+deltaCutoff < alpha && !move.IsPromotion() {
				if captureValue+standPat > bestValue {
					bestValue = captureValue + standPat
				}
				continue
			}
		}

		undo := pos.MakeMove(move)
		if !undo.Valid {
			pos.UnmakeMove(move, undo)
			continue
		}
		score := -w.quiescence(pos, ply+1, -beta, -alpha)
		pos.UnmakeMove(move, undo)

		if score > bestValue {
			bestValue = score
			bestMove = move
			if score > alpha {
				alpha = score
				if score >= beta {
					break
				}
			}
		}
	}

	if inCheck && bestValue == -MateScore+ply {
		return -MateScore + ply
	}

	var flag tt.Flag
	switch {
	case bestValue >= beta:
		flag = tt.Lower
	case bestValue > originalAlpha:
		flag = tt.Exact
	default:
		flag = tt.Upper
	}
	w.tt.Put(pos.Hash, 0, int16(clampInt(bestValue, -32768, 32767)), int16(clampInt(standPat, -32768, 32767)), flag, bestMove, ply)

	return bestValue
}

func captureMaterialValue(pos *board.Position, m board.Move) int {
	if m.IsEnPassant() {
		return victimValue[board.Pawn]
	}
	captured := pos.PieceAt(m.To())
	v := 0
	if captured != board.NoPiece {
		v = victimValue[captured.Type()]
	}
	if m.IsPromotion() {
		v += victimValue[m.Promotion()] - victimValue[board.Pawn]
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
