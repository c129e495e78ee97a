package floor

import (
	"context"
	"log"
	"sync"
	"time"
)

// RefreshScheduler periodically reloads the furniture index from the
// backend.  Drags in flight suspend it: a concurrent full refresh would
// clobber the optimistic position mid-gesture, so each gesture holds a
// suspension and releases it slightly after its commit settles.
type RefreshScheduler struct {
	mu        sync.Mutex
	suspended int
	stop      chan struct{}
	stopOnce  sync.Once

	interval time.Duration
	reload   func(ctx context.Context) error

	// afterFunc schedules the deferred resume; swapped out in tests.
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// NewRefreshScheduler builds a scheduler that calls reload every interval
// while not suspended.  Start must be called to begin ticking.
func NewRefreshScheduler(interval time.Duration, reload func(ctx context.Context) error) *RefreshScheduler {
	return &RefreshScheduler{
		interval:  interval,
		reload:    reload,
		stop:      make(chan struct{}),
		afterFunc: time.AfterFunc,
	}
}

// Start runs the tick loop until Stop is called or ctx is done.
func (r *RefreshScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				r.RefreshNow(ctx)
			}
		}
	}()
}

// Stop ends the tick loop.  Safe to call more than once.
func (r *RefreshScheduler) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// RefreshNow runs one reload unless the scheduler is suspended.  It
// reports whether the reload ran.
func (r *RefreshScheduler) RefreshNow(ctx context.Context) bool {
	r.mu.Lock()
	if r.suspended > 0 {
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()
	if err := r.reload(ctx); err != nil {
		log.Printf("floor-refresh: reload failed: %v", err)
	}
	return true
}

// Suspend blocks periodic reloads until a matching resume.  Suspensions
// nest; each drag gesture holds exactly one.
func (r *RefreshScheduler) Suspend() {
	r.mu.Lock()
	r.suspended++
	r.mu.Unlock()
}

// ResumeAfter releases one suspension after the delay.  Resuming
// immediately at commit settlement is unsafe: a refresh response already
// on the wire could still carry the pre-commit position.
func (r *RefreshScheduler) ResumeAfter(delay time.Duration) {
	if delay <= 0 {
		r.resume()
		return
	}
	r.afterFunc(delay, r.resume)
}

func (r *RefreshScheduler) resume() {
	r.mu.Lock()
	if r.suspended > 0 {
		r.suspended--
	}
	r.mu.Unlock()
}

// Suspended reports whether at least one suspension is held.
func (r *RefreshScheduler) Suspended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suspended > 0
}
