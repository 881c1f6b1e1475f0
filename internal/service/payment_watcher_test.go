package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/models"
)

type fakeChecker struct {
	mu       sync.Mutex
	statuses []string
	calls    int
	block    chan struct{} // when set, CheckCharge blocks until closed
	err      error
}

func (f *fakeChecker) CheckCharge(ctx context.Context, paymentID uint) (*CheckResult, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	status := constants.ChargeStatusPending
	if len(f.statuses) > 0 {
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		status = f.statuses[idx]
	}
	return &CheckResult{Status: status}, nil
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeReissuer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeReissuer) ReissueCharge(ctx context.Context, paymentID uint) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Payment{ID: paymentID, Status: constants.ChargeStatusPending}, nil
}

func (f *fakeReissuer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func runWatcher(t *testing.T, w *ChargeWatcher, ticks chan time.Time, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		select {
		case ticks <- time.Now():
		case <-w.Done():
			return
		case <-time.After(2 * time.Second):
			t.Fatalf("watcher did not consume tick %d", i+1)
		}
	}
}

func waitDone(t *testing.T, w *ChargeWatcher) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}

func TestChargeWatcherConfirms(t *testing.T) {
	checker := &fakeChecker{statuses: []string{
		constants.ChargeStatusPending,
		constants.ChargeStatusConfirmed,
	}}
	ticks := make(chan time.Time)
	w := NewChargeWatcher(1, checker, nil, WithTickSource(ticks))
	go w.Run(context.Background())

	runWatcher(t, w, ticks, 2)
	waitDone(t, w)

	if got := w.State(); got != WatchStateConfirmed {
		t.Fatalf("state = %q, want %q", got, WatchStateConfirmed)
	}
	if checker.callCount() != 2 {
		t.Fatalf("checks = %d, want 2", checker.callCount())
	}
}

func TestChargeWatcherReissuesExactlyOnce(t *testing.T) {
	// expired twice: first expiry re-issues, second ends the watch
	checker := &fakeChecker{statuses: []string{
		constants.ChargeStatusExpired,
		constants.ChargeStatusExpired,
	}}
	reissuer := &fakeReissuer{}
	ticks := make(chan time.Time)
	w := NewChargeWatcher(7, checker, reissuer, WithTickSource(ticks))
	go w.Run(context.Background())

	runWatcher(t, w, ticks, 2)
	waitDone(t, w)

	if reissuer.callCount() != 1 {
		t.Fatalf("reissues = %d, want exactly 1", reissuer.callCount())
	}
	if got := w.State(); got != WatchStateExpired {
		t.Fatalf("state = %q, want %q", got, WatchStateExpired)
	}
}

func TestChargeWatcherReissueFailureStops(t *testing.T) {
	checker := &fakeChecker{statuses: []string{constants.ChargeStatusExpired}}
	reissuer := &fakeReissuer{err: errors.New("gateway down")}
	ticks := make(chan time.Time)
	w := NewChargeWatcher(8, checker, reissuer, WithTickSource(ticks))
	go w.Run(context.Background())

	runWatcher(t, w, ticks, 1)
	waitDone(t, w)

	if got := w.State(); got != WatchStateFailed {
		t.Fatalf("state = %q, want %q", got, WatchStateFailed)
	}
	if reissuer.callCount() != 1 {
		t.Fatalf("reissues = %d, want 1", reissuer.callCount())
	}
}

func TestChargeWatcherConcurrentReissueKeepsWatching(t *testing.T) {
	checker := &fakeChecker{statuses: []string{
		constants.ChargeStatusExpired,
		constants.ChargeStatusConfirmed,
	}}
	reissuer := &fakeReissuer{err: ErrReissueInProgress}
	ticks := make(chan time.Time)
	w := NewChargeWatcher(9, checker, reissuer, WithTickSource(ticks))
	go w.Run(context.Background())

	runWatcher(t, w, ticks, 2)
	waitDone(t, w)

	if got := w.State(); got != WatchStateConfirmed {
		t.Fatalf("state = %q, want %q", got, WatchStateConfirmed)
	}
}

func TestChargeWatcherDropsTickDuringCheck(t *testing.T) {
	block := make(chan struct{})
	checker := &fakeChecker{block: block}
	ticks := make(chan time.Time, 8)
	w := NewChargeWatcher(2, checker, nil, WithTickSource(ticks))
	go w.Run(context.Background())

	// first tick starts a check that blocks on the gateway
	ticks <- time.Now()
	deadline := time.After(2 * time.Second)
	for w.State() != WatchStatePendingCheck {
		select {
		case <-deadline:
			t.Fatalf("check never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// piled-up ticks while in flight must not start concurrent checks
	for i := 0; i < 5; i++ {
		ticks <- time.Now()
	}
	if got := checker.callCount(); got != 1 {
		t.Fatalf("checks in flight = %d, want 1", got)
	}

	close(block)
	w.Stop()
	waitDone(t, w)
}

func TestChargeWatcherErrorRetriesNextTick(t *testing.T) {
	checker := &fakeChecker{err: errors.New("timeout")}
	ticks := make(chan time.Time)
	w := NewChargeWatcher(3, checker, nil, WithTickSource(ticks))
	go w.Run(context.Background())

	runWatcher(t, w, ticks, 3)
	deadline := time.After(2 * time.Second)
	for checker.callCount() != 3 || w.State() != WatchStateStillPending {
		select {
		case <-deadline:
			t.Fatalf("checks = %d state = %q, want 3 retries ending %q",
				checker.callCount(), w.State(), WatchStateStillPending)
		default:
			time.Sleep(time.Millisecond)
		}
	}

	w.Stop()
	waitDone(t, w)
}

func TestChargeWatcherContextCancel(t *testing.T) {
	checker := &fakeChecker{}
	ticks := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())
	w := NewChargeWatcher(4, checker, nil, WithTickSource(ticks))
	go w.Run(ctx)

	cancel()
	waitDone(t, w)
}

func TestChargeWatcherStop(t *testing.T) {
	checker := &fakeChecker{}
	ticks := make(chan time.Time)
	w := NewChargeWatcher(5, checker, nil, WithTickSource(ticks))
	go w.Run(context.Background())

	w.Stop()
	waitDone(t, w)
	if got := w.State(); got != WatchStateIdle {
		t.Fatalf("state = %q, want %q", got, WatchStateIdle)
	}
}
