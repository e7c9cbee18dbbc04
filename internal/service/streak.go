package service

import (
	"context"
	"errors"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/repository"
	"meowchi_miniapp/pkg/calendar"
)

const (
	BaseReward  = 500
	StreakCycle = 7
)

var DailyBonuses = []int{0, 140, 280, 400, 500, 600, 700}

type StreakService struct {
	repo StreakRepository
	cal  *calendar.Calendar
}

func NewStreakService(repo StreakRepository, cal *calendar.Calendar) *StreakService {
	return &StreakService{
		repo: repo,
		cal:  cal,
	}
}

func (s *StreakService) GetStatus(ctx context.Context, telegramID int64) (*model.Streak, error) {
	streak, err := s.repo.GetStreak(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr(err)
	}

	return s.evaluate(streak, s.cal.Today())
}

// Claim returns the streak after the claim and the points credited.
func (s *StreakService) Claim(ctx context.Context, telegramID int64) (*model.Streak, int, error) {
	today := s.cal.Today()

	var (
		claimed *model.Streak
		reward  int
	)
	err := s.repo.ClaimStreak(ctx, telegramID, func(current *model.Streak) (*model.Streak, int, error) {
		status, err := s.evaluate(current, today)
		if err != nil {
			return nil, 0, err
		}
		if !status.IsAvailable {
			return nil, 0, ErrClaimNotAvailable
		}

		days := status.ConsecutiveDays + 1
		if days > StreakCycle {
			days = 1
		}
		reward = BaseReward + DailyBonuses[days-1]

		claimDay := today
		claimed = &model.Streak{
			UserTelegramID:  telegramID,
			LastClaimDay:    &claimDay,
			ConsecutiveDays: days,
		}
		return claimed, reward, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, 0, ErrUserNotFound
		case errors.Is(err, ErrClaimNotAvailable):
			return nil, 0, ErrClaimNotAvailable
		}
		return nil, 0, storageErr(err)
	}

	status, err := s.evaluate(claimed, today)
	if err != nil {
		return nil, 0, err
	}
	return status, reward, nil
}

// evaluate resolves a stored streak against today: one claim per calendar
// day, and a gap of more than one day breaks the run.
func (s *StreakService) evaluate(streak *model.Streak, today calendar.Day) (*model.Streak, error) {
	status := &model.Streak{
		UserTelegramID:  streak.UserTelegramID,
		LastClaimDay:    streak.LastClaimDay,
		ConsecutiveDays: streak.ConsecutiveDays,
		NextClaimDay:    today,
		DailyRewards:    make([]model.DayReward, StreakCycle),
	}

	if streak.LastClaimDay == nil {
		status.IsAvailable = true
		status.ConsecutiveDays = 0
	} else {
		last := *streak.LastClaimDay
		distance, err := calendar.DayDistance(last, today)
		if err != nil {
			return nil, err
		}

		switch {
		case last >= today:
			status.IsAvailable = false
			end, err := calendar.EndOfDay(last)
			if err != nil {
				return nil, err
			}
			status.NextClaimDay = calendar.DayOf(end)
		case distance > 1:
			status.IsAvailable = true
			status.ConsecutiveDays = 0
		default:
			status.IsAvailable = true
		}
	}

	for i := 0; i < StreakCycle; i++ {
		status.DailyRewards[i] = model.DayReward{
			Day:    i + 1,
			Reward: BaseReward + DailyBonuses[i],
		}
	}

	return status, nil
}
