package audit

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes expired records from a sink.
type Pruner interface {
	Prune(olderThan time.Duration) (int64, error)
}

// RetentionScheduler runs a retention prune on a cron schedule.
type RetentionScheduler struct {
	cron      *cron.Cron
	pruner    Pruner
	retention time.Duration
}

// NewRetentionScheduler creates a scheduler. The schedule uses
// standard cron syntax; "0 3 * * *" prunes daily at 03:00.
func NewRetentionScheduler(pruner Pruner, spec string, retention time.Duration) (*RetentionScheduler, error) {
	s := &RetentionScheduler{
		cron:      cron.New(),
		pruner:    pruner,
		retention: retention,
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RetentionScheduler) runOnce() {
	removed, err := s.pruner.Prune(s.retention)
	if err != nil {
		slog.Error("audit retention prune failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("pruned expired usage records",
			"removed", removed,
			"retention", s.retention,
		)
	}
}

// Start begins the schedule.
func (s *RetentionScheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (s *RetentionScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
