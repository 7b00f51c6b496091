package pump

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPump_Ticks(t *testing.T) {
	var ticks atomic.Int32
	p := New(5*time.Millisecond, func(ctx context.Context) {
		ticks.Add(1)
	})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	p.Stop()

	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "no ticks after Stop returns")
}

func TestPump_DefaultInterval(t *testing.T) {
	p := New(0, func(context.Context) {})
	assert.Equal(t, DefaultInterval, p.Interval())
}

func TestPump_TicksNeverOverlap(t *testing.T) {
	var inFlight, maxInFlight, ticks atomic.Int32
	p := New(time.Millisecond, func(ctx context.Context) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond) // overrun the period
		inFlight.Add(-1)
		ticks.Add(1)
	})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() >= 5 }, time.Second, time.Millisecond)
	p.Stop()

	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestPump_StopIsIdempotent(t *testing.T) {
	p := New(time.Millisecond, func(context.Context) {})

	p.Stop() // never started

	p.Start(context.Background())
	assert.True(t, p.Running())
	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
}

func TestPump_StartTwiceKeepsOneLoop(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	p := New(time.Millisecond, func(context.Context) {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
	})

	p.Start(context.Background())
	p.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	p.Stop()

	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestPump_RestartAfterStop(t *testing.T) {
	var ticks atomic.Int32
	p := New(2*time.Millisecond, func(context.Context) { ticks.Add(1) })

	p.Start(context.Background())
	p.Stop()
	before := ticks.Load()

	p.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() > before }, time.Second, time.Millisecond)
	p.Stop()
}

func TestPump_ParentCancelStopsTicks(t *testing.T) {
	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := New(time.Millisecond, func(context.Context) { ticks.Add(1) })

	p.Start(ctx)
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)
	cancel()

	require.Eventually(t, func() bool { return !p.Running() }, time.Second, time.Millisecond)
	n := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, ticks.Load())

	p.Stop()
}

func TestPump_StartAfterParentCancel(t *testing.T) {
	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := New(time.Millisecond, func(context.Context) { ticks.Add(1) })

	p.Start(ctx)
	cancel()
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, time.Millisecond)

	ran := false
	assert.True(t, p.Do(func() { ran = true }))
	assert.True(t, ran)

	before := ticks.Load()
	p.Start(context.Background())
	defer p.Stop()

	assert.True(t, p.Running())
	require.Eventually(t, func() bool { return ticks.Load() > before }, time.Second, time.Millisecond)
	assert.True(t, p.Do(func() {}))
}

func TestPump_TickSeesCancellation(t *testing.T) {
	started := make(chan struct{}, 1)
	var sawCancel atomic.Bool
	p := New(time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		sawCancel.Store(true)
	})

	p.Start(context.Background())
	<-started
	p.Stop()
	assert.True(t, sawCancel.Load())
}

func TestPump_Do(t *testing.T) {
	t.Run("runs between ticks", func(t *testing.T) {
		var inTick atomic.Bool
		var ticks atomic.Int32
		p := New(time.Millisecond, func(context.Context) {
			inTick.Store(true)
			time.Sleep(time.Millisecond)
			inTick.Store(false)
			ticks.Add(1)
		})
		p.Start(context.Background())
		defer p.Stop()

		require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)

		for i := 0; i < 20; i++ {
			var overlapped bool
			ok := p.Do(func() { overlapped = inTick.Load() })
			require.True(t, ok)
			assert.False(t, overlapped)
		}
	})

	t.Run("runs inline when stopped", func(t *testing.T) {
		p := New(time.Millisecond, func(context.Context) {})
		ran := false
		assert.True(t, p.Do(func() { ran = true }))
		assert.True(t, ran)
	})

	t.Run("waits for completion", func(t *testing.T) {
		p := New(time.Hour, func(context.Context) {})
		p.Start(context.Background())
		defer p.Stop()

		var value int
		p.Do(func() {
			time.Sleep(5 * time.Millisecond)
			value = 42
		})
		assert.Equal(t, 42, value)
	})
}
