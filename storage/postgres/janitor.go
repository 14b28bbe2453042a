package pgstore

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultPurgeSchedule runs the purge once a minute.
const DefaultPurgeSchedule = "@every 1m"

// purger is the part of NonceStore the janitor needs.
type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Janitor periodically removes expired nonce rows. Postgres has no native
// TTL, so without it consumed-never nonces accumulate.
type Janitor struct {
	cron    *cron.Cron
	store   purger
	logger  logrus.FieldLogger
	timeout time.Duration
}

// NewJanitor schedules store purges on the given cron spec.
// An empty spec uses DefaultPurgeSchedule.
func NewJanitor(store purger, spec string, logger logrus.FieldLogger) (*Janitor, error) {
	if spec == "" {
		spec = DefaultPurgeSchedule
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	j := &Janitor{
		cron:    cron.New(),
		store:   store,
		logger:  logger.WithField("component", "pgstore.janitor"),
		timeout: 30 * time.Second,
	}
	if _, err := j.cron.AddFunc(spec, j.run); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	n, err := j.store.PurgeExpired(ctx)
	if err != nil {
		j.logger.WithError(err).Warn("failed to purge expired nonces")
		return
	}
	if n > 0 {
		j.logger.WithField("purged", n).Debug("purged expired nonces")
	}
}

// Start begins running scheduled purges in the background.
func (j *Janitor) Start() { j.cron.Start() }

// Stop halts scheduling and waits for a running purge to finish or ctx to end.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
