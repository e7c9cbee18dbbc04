package service

import (
	"context"
	"errors"
	"time"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/repository"
	"meowchi_miniapp/pkg/calendar"
	"meowchi_miniapp/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTapCap     = 42
	DefaultDailyQuota = 42

	notifyTimeout = 10 * time.Second
)

// Rejection is an expected, user-facing refusal of a claim. Retrying will
// not change the outcome within the same day.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return r.Code + ": " + r.Message
}

var (
	ErrNotEligible      = &Rejection{Code: "NOT_ELIGIBLE", Message: "there is nothing to claim today"}
	ErrInsufficientTaps = &Rejection{Code: "INSUFFICIENT_TAPS", Message: "not yet, keep tapping"}
	ErrAlreadyClaimed   = &Rejection{Code: "ALREADY_CLAIMED", Message: "today's reward is already claimed"}
	ErrQuotaExhausted   = &Rejection{Code: "QUOTA_EXHAUSTED", Message: "sold out today, come back tomorrow"}
)

type MeowConfig struct {
	TapCap          int           `mapstructure:"tapCap"`
	DailyQuota      int           `mapstructure:"dailyQuota"`
	ThrottleWindow  time.Duration `mapstructure:"throttleWindow"`
	ThrottleBackend string        `mapstructure:"throttleBackend"`
}

type MeowService struct {
	repo     MeowRepository
	cal      *calendar.Calendar
	tapCap   int
	quota    int
	notifier Notifier
	hub      QuotaPublisher
	newID    func() uuid.UUID
}

type MeowOption func(*MeowService)

func WithNotifier(n Notifier) MeowOption {
	return func(s *MeowService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithQuotaPublisher(p QuotaPublisher) MeowOption {
	return func(s *MeowService) {
		if p != nil {
			s.hub = p
		}
	}
}

func NewMeowService(repo MeowRepository, cal *calendar.Calendar, cfg MeowConfig, opts ...MeowOption) *MeowService {
	s := &MeowService{
		repo:     repo,
		cal:      cal,
		tapCap:   cfg.TapCap,
		quota:    cfg.DailyQuota,
		notifier: NopNotifier{},
		hub:      nopPublisher{},
		newID:    uuid.New,
	}
	if s.tapCap <= 0 {
		s.tapCap = DefaultTapCap
	}
	if s.quota <= 0 {
		s.quota = DefaultDailyQuota
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MeowService) TapCap() int {
	return s.tapCap
}

// RecordTap increments the caller's counter for today under the row lock,
// resetting a row left over from another day first. The counter saturates
// at the cap. Eligibility is attached once the cap is reached, read in the
// same transaction as the increment.
func (s *MeowService) RecordTap(ctx context.Context, userID int64) (*model.TapResult, error) {
	today := s.cal.Today()

	var result *model.TapResult
	err := s.repo.InMeowTx(ctx, func(tx repository.MeowTx) error {
		state, err := tx.LockOrCreateDailyState(ctx, userID, today)
		if err != nil {
			return err
		}

		dirty := false
		if state.TapDay != today {
			*state = state.Resolve(today)
			dirty = true
		}
		if state.TapCount < s.tapCap {
			state.TapCount++
			dirty = true
		}
		if dirty {
			if err = tx.SaveDailyState(ctx, state); err != nil {
				return err
			}
		}

		result = &model.TapResult{
			Count:  state.TapCount,
			Capped: state.TapCount >= s.tapCap,
			Day:    today,
		}
		if !result.Capped {
			return nil
		}

		taken, err := tx.GetClaimsTaken(ctx, today)
		if err != nil {
			return err
		}
		result.Eligibility = s.eligibility(*state, s.remainingFrom(taken))

		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	return result, nil
}

// Peek reads the caller's state as of today without writing anything.
func (s *MeowService) Peek(ctx context.Context, userID int64) (*model.DailyState, error) {
	today := s.cal.Today()

	state, err := s.repo.GetDailyState(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.DailyState{UserID: userID, TapDay: today}, nil
		}
		return nil, storageErr(err)
	}

	resolved := state.Resolve(today)
	return &resolved, nil
}

func (s *MeowService) Remaining(ctx context.Context, day calendar.Day) (int, error) {
	taken, err := s.repo.GetClaimsTaken(ctx, day)
	if err != nil {
		return 0, storageErr(err)
	}
	return s.remainingFrom(taken), nil
}

func (s *MeowService) EvaluateEligibility(ctx context.Context, userID int64) (*model.Eligibility, error) {
	state, err := s.Peek(ctx, userID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.Remaining(ctx, state.TapDay)
	if err != nil {
		return nil, err
	}

	return s.eligibility(*state, remaining), nil
}

// Claim redeems today's completed counter. User row first, quota row second:
// every caller takes the locks in that order.
func (s *MeowService) Claim(ctx context.Context, userID int64) (*model.ClaimResult, error) {
	today := s.cal.Today()
	result := &model.ClaimResult{
		ClaimID: s.newID(),
		Day:     today,
	}

	err := s.repo.InMeowTx(ctx, func(tx repository.MeowTx) error {
		state, err := tx.LockDailyState(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotEligible
			}
			return err
		}

		if state.TapDay != today {
			return ErrNotEligible
		}
		if state.TapCount < s.tapCap {
			return ErrInsufficientTaps
		}
		if state.ClaimUsedToday {
			return ErrAlreadyClaimed
		}

		taken, err := tx.LockClaimsTaken(ctx, today)
		if err != nil {
			return err
		}
		if taken >= s.quota {
			return ErrQuotaExhausted
		}

		inserted, err := tx.InsertClaimRecord(ctx, result.ClaimID, userID, today)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrAlreadyClaimed
		}

		if err = tx.SetClaimsTaken(ctx, today, taken+1); err != nil {
			return err
		}

		state.ClaimUsedToday = true
		if err = tx.SaveDailyState(ctx, state); err != nil {
			return err
		}

		result.RemainingGlobal = s.remainingFrom(taken + 1)
		return nil
	})
	if err != nil {
		var rejection *Rejection
		if errors.As(err, &rejection) {
			return nil, rejection
		}
		return nil, storageErr(err)
	}

	s.afterClaim(ctx, userID, result)

	return result, nil
}

func (s *MeowService) VerifyClaim(ctx context.Context, claimID uuid.UUID, userID int64) (bool, error) {
	ok, err := s.repo.ClaimExists(ctx, claimID, userID)
	if err != nil {
		return false, storageErr(err)
	}
	return ok, nil
}

func (s *MeowService) afterClaim(ctx context.Context, userID int64, result *model.ClaimResult) {
	s.hub.Publish(model.QuotaUpdate{Day: result.Day, RemainingGlobal: result.RemainingGlobal})

	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(notifyCtx, notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyClaim(ctx, userID, result); err != nil {
			logger.Logger().Warn("failed to send claim notification",
				zap.Int64("telegram_id", userID),
				zap.String("claim_id", result.ClaimID.String()),
				zap.Error(err))
		}
	}()
}

func (s *MeowService) remainingFrom(taken int) int {
	if taken >= s.quota {
		return 0
	}
	return s.quota - taken
}

func (s *MeowService) eligibility(state model.DailyState, remaining int) *model.Eligibility {
	out := &model.Eligibility{
		Eligible:        state.TapCount >= s.tapCap && !state.ClaimUsedToday && remaining > 0,
		UsedToday:       state.ClaimUsedToday,
		RemainingGlobal: remaining,
		Count:           state.TapCount,
		Day:             state.TapDay,
	}
	if end, err := calendar.EndOfDay(state.TapDay); err == nil {
		out.EndsAt = end
	}
	return out
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.QuotaUpdate) {}
