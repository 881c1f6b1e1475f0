package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/models"
)

// Watcher states
const (
	WatchStateIdle         = "idle"
	WatchStatePendingCheck = "pending-check"
	WatchStateStillPending = "still-pending"
	WatchStateConfirmed    = "confirmed"
	WatchStateExpired      = "expired"
	WatchStateReissuing    = "reissuing"
	WatchStateReissued     = "reissued"
	WatchStateFailed       = "failed"
)

// DefaultWatchInterval time between gateway status checks
const DefaultWatchInterval = 15 * time.Second

// StatusChecker resolves the current gateway status of a charge
type StatusChecker interface {
	CheckCharge(ctx context.Context, paymentID uint) (*CheckResult, error)
}

// Reissuer replaces an expired charge with a fresh one
type Reissuer interface {
	ReissueCharge(ctx context.Context, paymentID uint) (*models.Payment, error)
}

// ChargeWatcher polls one charge until it settles.
//
// A pending charge is checked on every tick; a tick arriving while a check
// is still running is dropped. When the charge expires it is re-issued at
// most once, then watching continues on the fresh charge. The watcher stops
// on confirmation, on a failed or second expiry, on Stop, or when the
// context is canceled.
type ChargeWatcher struct {
	paymentID uint
	checker   StatusChecker
	reissuer  Reissuer
	interval  time.Duration
	ticks     <-chan time.Time // overrides the interval ticker when set

	mu       sync.Mutex
	state    string
	inFlight bool
	reissued bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// WatcherOption configures a ChargeWatcher
type WatcherOption func(*ChargeWatcher)

// WithWatchInterval overrides the check interval
func WithWatchInterval(interval time.Duration) WatcherOption {
	return func(w *ChargeWatcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithTickSource drives the watcher from an external tick channel
func WithTickSource(ticks <-chan time.Time) WatcherOption {
	return func(w *ChargeWatcher) {
		w.ticks = ticks
	}
}

// NewChargeWatcher builds a watcher for one charge
func NewChargeWatcher(paymentID uint, checker StatusChecker, reissuer Reissuer, opts ...WatcherOption) *ChargeWatcher {
	w := &ChargeWatcher{
		paymentID: paymentID,
		checker:   checker,
		reissuer:  reissuer,
		interval:  DefaultWatchInterval,
		state:     WatchStateIdle,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current watcher state
func (w *ChargeWatcher) State() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Done is closed when the watcher has stopped
func (w *ChargeWatcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stop asks the watcher to finish after the current check
func (w *ChargeWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run polls until the charge settles or the watcher is stopped
func (w *ChargeWatcher) Run(ctx context.Context) {
	defer close(w.doneCh)

	ticks := w.ticks
	if ticks == nil {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticks:
			if done := w.checkOnce(ctx); done {
				return
			}
		}
	}
}

// checkOnce runs one status check. Returns true when watching is over.
func (w *ChargeWatcher) checkOnce(ctx context.Context) bool {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return false
	}
	w.inFlight = true
	w.state = WatchStatePendingCheck
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.inFlight = false
		w.mu.Unlock()
	}()

	result, err := w.checker.CheckCharge(ctx, w.paymentID)
	if err != nil {
		// transient: stay on the current charge and retry next tick
		logger.Warnw("charge_watch_check_failed", "payment_id", w.paymentID, "error", err)
		w.setState(WatchStateStillPending)
		return false
	}

	switch result.Status {
	case constants.ChargeStatusConfirmed:
		w.setState(WatchStateConfirmed)
		logger.Infow("charge_watch_confirmed", "payment_id", w.paymentID)
		return true
	case constants.ChargeStatusExpired:
		return w.handleExpired(ctx)
	case constants.ChargeStatusFailed:
		w.setState(WatchStateFailed)
		logger.Warnw("charge_watch_failed", "payment_id", w.paymentID)
		return true
	default:
		w.setState(WatchStateStillPending)
		return false
	}
}

// handleExpired re-issues once; a later expiry of the re-issued charge
// ends the watch instead of issuing again.
func (w *ChargeWatcher) handleExpired(ctx context.Context) bool {
	w.mu.Lock()
	alreadyReissued := w.reissued
	w.mu.Unlock()

	if alreadyReissued || w.reissuer == nil {
		w.setState(WatchStateExpired)
		logger.Infow("charge_watch_expired", "payment_id", w.paymentID, "reissued", alreadyReissued)
		return true
	}

	w.setState(WatchStateReissuing)
	_, err := w.reissuer.ReissueCharge(ctx, w.paymentID)
	if err != nil {
		if errors.Is(err, ErrReissueInProgress) {
			// someone else is re-issuing this charge, keep watching
			w.setState(WatchStateStillPending)
			return false
		}
		w.setState(WatchStateFailed)
		logger.Errorw("charge_watch_reissue_failed", "payment_id", w.paymentID, "error", err)
		return true
	}

	w.mu.Lock()
	w.reissued = true
	w.state = WatchStateReissued
	w.mu.Unlock()
	logger.Infow("charge_watch_reissued", "payment_id", w.paymentID)
	return false
}

func (w *ChargeWatcher) setState(state string) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}
