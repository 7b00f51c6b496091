// Package pump provides a cancellable periodic driver that runs one tick at a
// time on a single goroutine.
package pump

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the reference frame period (about 20 frames per second).
const DefaultInterval = 50 * time.Millisecond

// TickFunc processes one period. It receives the pump's context, which is
// cancelled when the pump stops.
type TickFunc func(ctx context.Context)

// Pump calls a TickFunc on a fixed period. Ticks never overlap: a tick that
// overruns the period delays the next one instead of running alongside it.
// Commands queued with Do run on the same goroutine between ticks, so state
// touched by the tick and by commands has a single writer.
type Pump struct {
	interval time.Duration
	tick     TickFunc
	cmds     chan func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped Pump. Non-positive intervals use DefaultInterval.
func New(interval time.Duration, tick TickFunc) *Pump {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pump{
		interval: interval,
		tick:     tick,
		cmds:     make(chan func()),
	}
}

// Interval returns the tick period.
func (p *Pump) Interval() time.Duration {
	return p.interval
}

// Start launches the loop. Starting a running pump does nothing.
func (p *Pump) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.run(ctx, done)
}

// Stop cancels the loop and waits for the current tick to return.
// Stopping a stopped pump does nothing. Stop must not be called from a tick
// or a command.
func (p *Pump) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active. A pump whose parent context
// was cancelled is not running.
func (p *Pump) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Do runs fn on the loop goroutine between ticks and waits for it to
// finish. When the pump is stopped, fn runs on the caller's goroutine.
// It reports false only if the pump stopped before fn could run.
// Do must not be called from a tick or a command.
func (p *Pump) Do(fn func()) bool {
	p.mu.Lock()
	done := p.done
	if done == nil {
		fn()
		p.mu.Unlock()
		return true
	}
	p.mu.Unlock()

	ran := make(chan struct{})
	select {
	case p.cmds <- func() {
		defer close(ran)
		fn()
	}:
		<-ran
		return true
	case <-done:
		return false
	}
}

func (p *Pump) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.release(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-p.cmds:
			fn()
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.tick(ctx)
		}
	}
}

// release clears the loop's bookkeeping when it exits on its own, after the
// parent context was cancelled, so the pump reads as stopped and can be
// started again.
func (p *Pump) release(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return
	}
	p.cancel()
	p.cancel = nil
	p.done = nil
}
