package job

import (
	"context"
	"sync"
	"time"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/pkg/calendar"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type ResetRepository interface {
	ResetDay(ctx context.Context, day calendar.Day) (int64, error)
	GetClaimsTaken(ctx context.Context, day calendar.Day) (int, error)
}

type QuotaPublisher interface {
	Publish(update model.QuotaUpdate)
}

// DailyReset zeroes stale tap rows and opens the new day's quota row at
// every local midnight. Request handling already resets rows lazily, so a
// missed run only delays cleanup until the next midnight.
type DailyReset struct {
	repo       ResetRepository
	cal        *calendar.Calendar
	hub        QuotaPublisher
	dailyQuota int
	log        *zap.Logger

	mu      sync.Mutex
	running bool

	// after is time.After outside tests.
	after func(d time.Duration) <-chan time.Time
}

func NewDailyReset(
	repo ResetRepository,
	cal *calendar.Calendar,
	hub QuotaPublisher,
	dailyQuota int,
	log *zap.Logger,
) *DailyReset {
	return &DailyReset{
		repo:       repo,
		cal:        cal,
		hub:        hub,
		dailyQuota: dailyQuota,
		log:        log,
		after:      time.After,
	}
}

// Run blocks until ctx is done, firing RunOnce at each local midnight.
func (j *DailyReset) Run(ctx context.Context) {
	j.log.Info("daily reset scheduled", zap.Time("next_run", j.cal.NextMidnight(j.cal.Now())))

	for {
		boundary := j.cal.NextMidnight(j.cal.Now())
		wait := boundary.Sub(j.cal.Now())
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			j.log.Info("daily reset stopped")
			return
		case <-j.after(wait):
		}

		// The token of the boundary we waited for, not of whatever the
		// clock says after the wakeup.
		day := calendar.DayOf(boundary)
		if _, err := j.RunOnce(ctx, day); err != nil {
			j.log.Error("daily reset failed, next attempt at next midnight",
				zap.String("day", day.String()), zap.Error(err))
		}
	}
}

// RunOnce performs one sweep for day and returns the number of rows reset.
func (j *DailyReset) RunOnce(ctx context.Context, day calendar.Day) (int64, error) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		j.log.Info("daily reset already running, skipping", zap.String("day", day.String()))
		return 0, nil
	}
	j.running = true
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	started := time.Now()
	reset, err := j.repo.ResetDay(ctx, day)
	if err != nil {
		return 0, errors.WithMessage(err, "reset day")
	}

	j.log.Info("daily reset done",
		zap.String("day", day.String()),
		zap.Int64("reset_rows", reset),
		zap.Duration("took", time.Since(started)))

	if j.hub != nil {
		taken, err := j.repo.GetClaimsTaken(ctx, day)
		if err != nil {
			j.log.Warn("failed to read quota after reset", zap.Error(err))
			return reset, nil
		}
		remaining := j.dailyQuota - taken
		if remaining < 0 {
			remaining = 0
		}
		j.hub.Publish(model.QuotaUpdate{Day: day, RemainingGlobal: remaining})
	}

	return reset, nil
}
