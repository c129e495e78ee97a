package floor

import (
	"context"
	"testing"
	"time"
)

func TestRefreshNowRunsReload(t *testing.T) {
	calls := 0
	r := NewRefreshScheduler(time.Minute, func(ctx context.Context) error { calls++; return nil })

	if !r.RefreshNow(context.Background()) {
		t.Fatalf("refresh should run while not suspended")
	}
	if calls != 1 {
		t.Fatalf("reload calls = %d, want 1", calls)
	}
}

func TestRefreshSkippedWhileSuspended(t *testing.T) {
	calls := 0
	r := NewRefreshScheduler(time.Minute, func(ctx context.Context) error { calls++; return nil })

	r.Suspend()
	if r.RefreshNow(context.Background()) {
		t.Fatalf("refresh must be skipped while suspended")
	}
	if calls != 0 {
		t.Fatalf("reload ran under suspension")
	}
}

func TestSuspensionsNest(t *testing.T) {
	r := NewRefreshScheduler(time.Minute, func(ctx context.Context) error { return nil })

	r.Suspend()
	r.Suspend()
	r.ResumeAfter(0)
	if !r.Suspended() {
		t.Fatalf("one resume must not release two suspensions")
	}
	r.ResumeAfter(0)
	if r.Suspended() {
		t.Fatalf("matched resumes should release the scheduler")
	}
}

func TestResumeAfterDefersThroughTimer(t *testing.T) {
	r := NewRefreshScheduler(time.Minute, func(ctx context.Context) error { return nil })

	var scheduled time.Duration
	var fire func()
	r.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		scheduled = d
		fire = fn
		return nil
	}

	r.Suspend()
	r.ResumeAfter(750 * time.Millisecond)
	if scheduled != 750*time.Millisecond {
		t.Fatalf("scheduled delay = %v", scheduled)
	}
	if !r.Suspended() {
		t.Fatalf("suspension must hold until the timer fires")
	}
	fire()
	if r.Suspended() {
		t.Fatalf("timer fire should release the suspension")
	}
}
