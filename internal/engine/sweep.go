package engine

import (
	"context"
	"log/slog"
	"time"
)

// sweeper is the periodic background pass that bounds memory. Raw counters
// are swept on a short cadence; reputation, session and lockout state on a
// longer one. It never touches active entries and never resets violation
// counters or shortens blocks; its sole job is eviction of the stale.
type sweeper struct {
	engine          *Engine
	logger          *slog.Logger
	counterInterval time.Duration
	stateInterval   time.Duration
	stopCh          chan struct{}
}

func newSweeper(e *Engine, logger *slog.Logger, counterInterval, stateInterval time.Duration) *sweeper {
	return &sweeper{
		engine:          e,
		logger:          logger,
		counterInterval: counterInterval,
		stateInterval:   stateInterval,
		stopCh:          make(chan struct{}),
	}
}

// start runs the sweep loop until stop is called or ctx is cancelled.
func (sw *sweeper) start(ctx context.Context) {
	counterTicker := time.NewTicker(sw.counterInterval)
	defer counterTicker.Stop()
	stateTicker := time.NewTicker(sw.stateInterval)
	defer stateTicker.Stop()

	for {
		select {
		case <-counterTicker.C:
			sw.sweepCounters(time.Now())
		case <-stateTicker.C:
			sw.sweepState(time.Now())
		case <-sw.stopCh:
			sw.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			sw.logger.Info("sweeper context cancelled")
			return
		}
	}
}

func (sw *sweeper) stop() {
	close(sw.stopCh)
}

func (sw *sweeper) sweepCounters(now time.Time) {
	evicted := sw.engine.windows.sweep(now, sw.engine.cfg.ClientStaleAfter)
	if evicted > 0 {
		sw.engine.metrics.evictions.WithLabelValues("counters").Add(float64(evicted))
		sw.logger.Info("swept stale client records", slog.Int("evicted", evicted))
	}
}

func (sw *sweeper) sweepState(now time.Time) {
	sessions := sw.engine.sessions.sweep(now, sw.engine.cfg.SessionIdleTimeout)
	lockouts := sw.engine.lockouts.sweep(now, sw.engine.cfg.ClientStaleAfter)
	blocks := sw.engine.rep.sweep(now, sw.engine.cfg.ClientStaleAfter)

	if sessions > 0 {
		sw.engine.metrics.evictions.WithLabelValues("sessions").Add(float64(sessions))
	}
	if lockouts > 0 {
		sw.engine.metrics.evictions.WithLabelValues("lockouts").Add(float64(lockouts))
	}
	if blocks > 0 {
		sw.engine.metrics.evictions.WithLabelValues("blocks").Add(float64(blocks))
	}
	if sessions+lockouts+blocks > 0 {
		sw.logger.Info("swept expired state",
			slog.Int("sessions", sessions),
			slog.Int("lockouts", lockouts),
			slog.Int("blocks", blocks),
		)
	}
}
