package mocks

import (
	"context"

	"meowchi_miniapp/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockStreakRepository hands Current to the decide callback of ClaimStreak
// and records what it decided in Stored and Reward.
type MockStreakRepository struct {
	mock.Mock
	Current *model.Streak
	Stored  *model.Streak
	Reward  int
}

func (m *MockStreakRepository) GetStreak(ctx context.Context, telegramID int64) (*model.Streak, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Streak), args.Error(1)
}

func (m *MockStreakRepository) ClaimStreak(
	ctx context.Context,
	telegramID int64,
	decide func(current *model.Streak) (*model.Streak, int, error),
) error {
	args := m.Called(ctx, telegramID)
	if err := args.Error(0); err != nil {
		return err
	}

	next, reward, err := decide(m.Current)
	if err != nil {
		return err
	}
	m.Stored = next
	m.Reward = reward
	return nil
}
