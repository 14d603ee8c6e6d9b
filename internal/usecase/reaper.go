package usecase

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionReaper periodically removes stale sessions on a cron schedule.
type SessionReaper struct {
	cron     *cron.Cron
	sessions *SessionManager
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewSessionReaper creates a reaper for one agent's session manager.
// schedule is a standard 5-field cron expression.
func NewSessionReaper(sm *SessionManager, schedule string, maxAge time.Duration, logger *slog.Logger) (*SessionReaper, error) {
	r := &SessionReaper{
		cron:     cron.New(),
		sessions: sm,
		maxAge:   maxAge,
		logger:   logger,
	}
	if _, err := r.cron.AddFunc(schedule, r.reap); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SessionReaper) reap() {
	n := r.sessions.ReapStale(r.maxAge)
	if n > 0 {
		r.logger.Info("reaped stale sessions", "count", n, "max_age", r.maxAge)
	}
}

// Start begins scheduled reaping.
func (r *SessionReaper) Start() { r.cron.Start() }

// Stop halts scheduled reaping; running jobs complete.
func (r *SessionReaper) Stop() { r.cron.Stop() }
