// Package timeman computes the soft and hard search deadlines a UCI
// "go" command implies, and adjusts the soft deadline as the search
// progresses depending on whether the best move is settling down or
// still changing.
package timeman

import "time"

// Limits mirrors the subset of UCI "go" parameters that affect time
// allocation.
type Limits struct {
	Time      [2]time.Duration // wtime, btime
	Inc       [2]time.Duration // winc, binc
	MovesToGo int              // 0 = sudden death
	MoveTime  time.Duration    // fixed time per move, overrides the rest
	Infinite  bool
}

// Manager tracks one search's time budget: a soft deadline the main
// worker won't start a new iterative-deepening iteration past, and a
// hard deadline that forces an immediate stop regardless of iteration
// state.
type Manager struct {
	soft, hard time.Duration
	start      time.Time
}

// NewManager starts the clock and computes deadlines for limits, for
// the side us (0 = white's index into Limits.Time/Inc, matching
// board.Color's underlying values) at the given game ply.
func NewManager(limits Limits, us int, ply int) *Manager {
	m := &Manager{start: time.Now()}

	switch {
	case limits.MoveTime > 0:
		m.soft = limits.MoveTime
		m.hard = limits.MoveTime
	case limits.Infinite || limits.Time[us] == 0:
		m.soft = time.Hour
		m.hard = time.Hour
	default:
		m.computeFromClock(limits, us, ply)
	}
	return m
}

func (m *Manager) computeFromClock(limits Limits, us int, ply int) {
	timeLeft := limits.Time[us]
	inc := limits.Inc[us]

	mtg := limits.MovesToGo
	if mtg == 0 {
		mtg = 50 - ply/4
		if mtg < 10 {
			mtg = 10
		}
		if mtg > 50 {
			mtg = 50
		}
	}

	base := timeLeft/time.Duration(mtg) + inc*9/10
	if ply < 8 {
		base = base * 85 / 100
	}
	m.soft = base

	maxFromSoft := m.soft * 5
	maxFromRemaining := timeLeft * 8 / 10
	if maxFromSoft < maxFromRemaining {
		m.hard = maxFromSoft
	} else {
		m.hard = maxFromRemaining
	}

	if safety := timeLeft * 95 / 100; m.hard > safety {
		m.hard = safety
	}

	if m.soft < 10*time.Millisecond {
		m.soft = 10 * time.Millisecond
	}
	if m.hard < 50*time.Millisecond {
		m.hard = 50 * time.Millisecond
	}
}

// Elapsed returns the time elapsed since the manager was constructed.
func (m *Manager) Elapsed() time.Duration {
	return time.Since(m.start)
}

// SoftDeadline and HardDeadline report the current soft/hard budgets.
func (m *Manager) SoftDeadline() time.Duration { return m.soft }
func (m *Manager) HardDeadline() time.Duration { return m.hard }

// ShouldStopHard reports whether the hard deadline has been exceeded —
// the search must stop immediately, mid-iteration, regardless of
// whether an iteration has completed.
func (m *Manager) ShouldStopHard() bool {
	return m.Elapsed() >= m.hard
}

// ShouldStartNewIteration reports whether enough of the soft budget
// remains to justify starting another iterative-deepening iteration.
func (m *Manager) ShouldStartNewIteration() bool {
	return m.Elapsed() < m.soft
}

// softExtensionCap bounds how far AdjustForInstability may stretch the
// soft deadline: 1.5x the deadline computed from the clock, per the
// "deadline may be extended up to 1.5x soft when unstable" contract.
const softExtensionCap = 3 // expressed as a /2 fraction: 3/2 = 1.5x

// AdjustForStability shrinks the soft deadline once the best move has
// held for several consecutive iterations, letting the search stop
// earlier rather than spend time confirming a settled decision.
func (m *Manager) AdjustForStability(stableIterations int) {
	switch {
	case stableIterations >= 6:
		m.soft = m.soft * 40 / 100
	case stableIterations >= 4:
		m.soft = m.soft * 60 / 100
	case stableIterations >= 2:
		m.soft = m.soft * 80 / 100
	}
}

// AdjustForInstability grows the soft deadline when the best move or
// root score keeps changing between iterations, capped at 1.5x the
// deadline the clock alone would have produced.
func (m *Manager) AdjustForInstability(changedIterations int, clockDerivedSoft time.Duration) {
	extensionCap := clockDerivedSoft * softExtensionCap / 2

	switch {
	case changedIterations >= 4:
		m.soft = m.soft * 2
	case changedIterations >= 2:
		m.soft = m.soft * 150 / 100
	default:
		return
	}
	if m.soft > extensionCap {
		m.soft = extensionCap
	}
	if m.soft > m.hard {
		m.soft = m.hard
	}
}
