package model

import "meowchi_miniapp/pkg/calendar"

type Streak struct {
	UserTelegramID  int64
	LastClaimDay    *calendar.Day
	ConsecutiveDays int
	IsAvailable     bool
	NextClaimDay    calendar.Day
	DailyRewards    []DayReward
}

type DayReward struct {
	Day    int
	Reward int
}
