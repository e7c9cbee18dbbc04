package service

import (
	"context"
	"testing"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/repository"
	"meowchi_miniapp/internal/service/mocks"
	"meowchi_miniapp/pkg/calendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func dayPtr(d calendar.Day) *calendar.Day {
	return &d
}

func TestStreakService_GetStatus(t *testing.T) {
	mockRepo := &mocks.MockStreakRepository{}
	service := NewStreakService(mockRepo, calendar.NewWithClock(newTestClock(noonTashkent).Now))

	tests := []struct {
		name            string
		telegramID      int64
		mockSetup       func()
		expectedError   error
		checkAdditional func(*testing.T, *model.Streak)
	}{
		{
			name:       "User not found",
			telegramID: 123,
			mockSetup: func() {
				mockRepo.On("GetStreak", mock.Anything, int64(123)).
					Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
		{
			name:       "Never claimed before",
			telegramID: 124,
			mockSetup: func() {
				mockRepo.On("GetStreak", mock.Anything, int64(124)).
					Return(&model.Streak{UserTelegramID: 124}, nil)
			},
			checkAdditional: func(t *testing.T, streak *model.Streak) {
				assert.True(t, streak.IsAvailable)
				assert.Equal(t, 0, streak.ConsecutiveDays)
				assert.Equal(t, today, streak.NextClaimDay)
				for i := 0; i < StreakCycle; i++ {
					assert.Equal(t, i+1, streak.DailyRewards[i].Day)
					assert.Equal(t, BaseReward+DailyBonuses[i], streak.DailyRewards[i].Reward)
				}
			},
		},
		{
			name:       "Claimed today",
			telegramID: 125,
			mockSetup: func() {
				mockRepo.On("GetStreak", mock.Anything, int64(125)).
					Return(&model.Streak{UserTelegramID: 125, LastClaimDay: dayPtr(today), ConsecutiveDays: 2}, nil)
			},
			checkAdditional: func(t *testing.T, streak *model.Streak) {
				assert.False(t, streak.IsAvailable)
				assert.Equal(t, calendar.Day("2025-10-11"), streak.NextClaimDay)
				assert.Equal(t, 2, streak.ConsecutiveDays)
			},
		},
		{
			name:       "Claimed yesterday keeps the run",
			telegramID: 126,
			mockSetup: func() {
				mockRepo.On("GetStreak", mock.Anything, int64(126)).
					Return(&model.Streak{UserTelegramID: 126, LastClaimDay: dayPtr(yesterday), ConsecutiveDays: 3}, nil)
			},
			checkAdditional: func(t *testing.T, streak *model.Streak) {
				assert.True(t, streak.IsAvailable)
				assert.Equal(t, 3, streak.ConsecutiveDays)
			},
		},
		{
			name:       "Gap breaks the run",
			telegramID: 127,
			mockSetup: func() {
				mockRepo.On("GetStreak", mock.Anything, int64(127)).
					Return(&model.Streak{UserTelegramID: 127, LastClaimDay: dayPtr("2025-10-07"), ConsecutiveDays: 4}, nil)
			},
			checkAdditional: func(t *testing.T, streak *model.Streak) {
				assert.True(t, streak.IsAvailable)
				assert.Equal(t, 0, streak.ConsecutiveDays)
			},
		},
		{
			name:       "Corrupt stored day",
			telegramID: 128,
			mockSetup: func() {
				mockRepo.On("GetStreak", mock.Anything, int64(128)).
					Return(&model.Streak{UserTelegramID: 128, LastClaimDay: dayPtr("10/07/2025")}, nil)
			},
			expectedError: calendar.ErrInvalidDay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			streak, err := service.GetStatus(context.Background(), tt.telegramID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, streak)

			if tt.checkAdditional != nil {
				tt.checkAdditional(t, streak)
			}
		})
	}

	mockRepo.AssertExpectations(t)
}

func TestStreakService_Claim(t *testing.T) {
	tests := []struct {
		name           string
		current        *model.Streak
		claimErr       error
		expectedError  error
		expectedDays   int
		expectedReward int
	}{
		{
			name:           "Successful first claim",
			current:        &model.Streak{UserTelegramID: 1},
			expectedDays:   1,
			expectedReward: BaseReward + DailyBonuses[0],
		},
		{
			name:           "Successful consecutive claim (day 3)",
			current:        &model.Streak{UserTelegramID: 1, LastClaimDay: dayPtr(yesterday), ConsecutiveDays: 2},
			expectedDays:   3,
			expectedReward: BaseReward + DailyBonuses[2],
		},
		{
			name:           "Reset after day 7",
			current:        &model.Streak{UserTelegramID: 1, LastClaimDay: dayPtr(yesterday), ConsecutiveDays: 7},
			expectedDays:   1,
			expectedReward: BaseReward + DailyBonuses[0],
		},
		{
			name:           "Broken run restarts",
			current:        &model.Streak{UserTelegramID: 1, LastClaimDay: dayPtr("2025-10-01"), ConsecutiveDays: 5},
			expectedDays:   1,
			expectedReward: BaseReward + DailyBonuses[0],
		},
		{
			name:          "Claim not available",
			current:       &model.Streak{UserTelegramID: 1, LastClaimDay: dayPtr(today), ConsecutiveDays: 1},
			expectedError: ErrClaimNotAvailable,
		},
		{
			name:          "User not found",
			claimErr:      repository.ErrNotFound,
			expectedError: ErrUserNotFound,
		},
		{
			name:          "Storage failure",
			claimErr:      assert.AnError,
			expectedError: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockStreakRepository{Current: tt.current}
			service := NewStreakService(mockRepo, calendar.NewWithClock(newTestClock(noonTashkent).Now))
			mockRepo.On("ClaimStreak", mock.Anything, int64(1)).Return(tt.claimErr)

			streak, reward, err := service.Claim(context.Background(), 1)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, mockRepo.Stored)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedReward, reward)
			assert.Equal(t, tt.expectedReward, mockRepo.Reward)
			assert.Equal(t, tt.expectedDays, mockRepo.Stored.ConsecutiveDays)
			assert.Equal(t, today, *mockRepo.Stored.LastClaimDay)
			assert.False(t, streak.IsAvailable)
			mockRepo.AssertExpectations(t)
		})
	}
}
