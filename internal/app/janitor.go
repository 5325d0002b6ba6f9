package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type purger interface {
	Purge(ctx context.Context, olderThan time.Time) (int, error)
}

type purgeRecorder interface {
	Purged(n int)
}

type Log interface {
	Debug(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Janitor periodically drops sessions idle for longer than ttl.
type Janitor struct {
	store    purger
	clock    clockwork.Clock
	interval time.Duration
	ttl      time.Duration
	metrics  purgeRecorder
	log      Log
}

func NewJanitor(store purger, clock clockwork.Clock, interval, ttl time.Duration, metrics purgeRecorder, log Log) *Janitor {
	return &Janitor{
		store:    store,
		clock:    clock,
		interval: interval,
		ttl:      ttl,
		metrics:  metrics,
		log:      log,
	}
}

// Run purges on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			j.purgeOnce(ctx)
		}
	}
}

func (j *Janitor) purgeOnce(ctx context.Context) {
	cutoff := j.clock.Now().Add(-j.ttl)
	n, err := j.store.Purge(ctx, cutoff)
	if err != nil {
		j.log.Error("Session purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		j.metrics.Purged(n)
	}
	j.log.Debug("Session purge finished", zap.Int("purged", n), zap.Time("cutoff", cutoff))
}
