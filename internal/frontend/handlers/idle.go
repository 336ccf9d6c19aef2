package handlers

import (
	"sync/atomic"
	"time"
)

// IdleMonitorConfig configures StartIdleMonitor.
type IdleMonitorConfig struct {
	// LastInput holds the UnixNano time of the player's most recent input.
	LastInput *atomic.Int64
	// IdleTimeout is the silence after which OnWarning fires.
	IdleTimeout time.Duration
	// GracePeriod is the further silence after the warning before OnDisconnect fires.
	GracePeriod time.Duration
	// TickInterval is how often LastInput is sampled.
	TickInterval time.Duration
	OnWarning    func()
	OnDisconnect func()
}

// StartIdleMonitor watches cfg.LastInput in a goroutine and returns a function that
// stops it. Input after the warning re-arms the monitor.
//
// Precondition: LastInput, OnWarning, and OnDisconnect must be non-nil; TickInterval > 0.
// Postcondition: OnWarning fires at most once per idle stretch; OnDisconnect fires at
// most once, after which the goroutine exits. No callback fires after stop returns.
func StartIdleMonitor(cfg IdleMonitorConfig) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()

		var warnedAt time.Time
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				last := time.Unix(0, cfg.LastInput.Load())
				if !warnedAt.IsZero() && last.After(warnedAt) {
					warnedAt = time.Time{}
				}
				if warnedAt.IsZero() {
					if now.Sub(last) >= cfg.IdleTimeout {
						select {
						case <-done:
							return
						default:
						}
						warnedAt = now
						cfg.OnWarning()
					}
					continue
				}
				if now.Sub(warnedAt) >= cfg.GracePeriod {
					select {
					case <-done:
						return
					default:
					}
					cfg.OnDisconnect()
					return
				}
			}
		}
	}()

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
			<-exited
		}
	}
}
