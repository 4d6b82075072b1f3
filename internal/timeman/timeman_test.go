package timeman

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedMoveTimeUsesExactBudget(t *testing.T) {
	m := NewManager(Limits{MoveTime: 500 * time.Millisecond}, 0, 20)
	assert.Equal(t, 500*time.Millisecond, m.SoftDeadline())
	assert.Equal(t, 500*time.Millisecond, m.HardDeadline())
}

func TestInfiniteSearchGetsHourLongBudget(t *testing.T) {
	m := NewManager(Limits{Infinite: true}, 0, 1)
	assert.Equal(t, time.Hour, m.SoftDeadline())
}

func TestHardDeadlineExceedsSoft(t *testing.T) {
	m := NewManager(Limits{Time: [2]time.Duration{30 * time.Second, 30 * time.Second}}, 0, 10)
	assert.Greater(t, m.HardDeadline(), m.SoftDeadline())
}

func TestHardDeadlineNeverExceedsRemainingTime(t *testing.T) {
	m := NewManager(Limits{Time: [2]time.Duration{2 * time.Second, 2 * time.Second}}, 0, 40)
	assert.LessOrEqual(t, m.HardDeadline(), 2*time.Second)
}

func TestStabilityShrinksSoftDeadline(t *testing.T) {
	m := NewManager(Limits{Time: [2]time.Duration{60 * time.Second, 60 * time.Second}}, 0, 10)
	before := m.SoftDeadline()
	m.AdjustForStability(6)
	assert.Less(t, m.SoftDeadline(), before)
}

func TestInstabilityCapsAt1Point5xClockDerivedSoft(t *testing.T) {
	m := NewManager(Limits{Time: [2]time.Duration{60 * time.Second, 60 * time.Second}}, 0, 10)
	clockDerived := m.SoftDeadline()

	m.AdjustForInstability(10, clockDerived)

	assert.LessOrEqual(t, m.SoftDeadline(), clockDerived*3/2+1)
	assert.Greater(t, m.SoftDeadline(), clockDerived)
}

func TestShouldStartNewIterationFalseOncePastSoftDeadline(t *testing.T) {
	m := NewManager(Limits{MoveTime: 10 * time.Millisecond}, 0, 1)
	time.Sleep(15 * time.Millisecond)
	assert.False(t, m.ShouldStartNewIteration())
	assert.True(t, m.ShouldStopHard())
}
