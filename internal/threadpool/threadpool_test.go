package threadpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllWorkersRunEachCycle(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var ran atomic.Int32
	err := pool.Start(func(id int, stop *atomic.Bool) {
		ran.Add(1)
	})

	require.NoError(t, err)
	assert.EqualValues(t, 4, ran.Load())
}

func TestPoolReusedAcrossCycles(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	for i := 0; i < 5; i++ {
		var ran atomic.Int32
		err := pool.Start(func(id int, stop *atomic.Bool) { ran.Add(1) })
		require.NoError(t, err)
		assert.EqualValues(t, 2, ran.Load())
	}
}

func TestStopFlagResetsBetweenCycles(t *testing.T) {
	pool := New(1)
	defer pool.Close()

	pool.Start(func(id int, stop *atomic.Bool) { stop.Store(true) })
	assert.True(t, pool.Stopped())

	var observedStop bool
	pool.Start(func(id int, stop *atomic.Bool) { observedStop = stop.Load() })
	assert.False(t, observedStop, "Start must clear the stop flag from the previous cycle")
}

func TestWorkerPanicSurfacesAsError(t *testing.T) {
	pool := New(3)
	defer pool.Close()

	err := pool.Start(func(id int, stop *atomic.Bool) {
		if id == 1 {
			panic("boom")
		}
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestStopIsObservablePartway(t *testing.T) {
	pool := New(1)
	defer pool.Close()

	started := make(chan struct{})
	go func() {
		<-started
		pool.Stop()
	}()

	err := pool.Start(func(id int, stop *atomic.Bool) {
		close(started)
		for !stop.Load() {
			time.Sleep(time.Millisecond)
		}
	})
	require.NoError(t, err)
}

func TestCloseStopsAcceptingNewCycles(t *testing.T) {
	pool := New(2)
	pool.Close()

	err := pool.Start(func(id int, stop *atomic.Bool) {})
	assert.Error(t, err)
}
