package model

import (
	"time"

	"meowchi_miniapp/pkg/calendar"

	"github.com/google/uuid"
)

// DailyState is one user's rolling single-day tap window.
type DailyState struct {
	UserID         int64
	TapCount       int
	TapDay         calendar.Day
	ClaimUsedToday bool
}

// Resolve returns the state as seen on today: a row stamped with another
// day counts as zero taps and no claim.
func (s DailyState) Resolve(today calendar.Day) DailyState {
	if s.TapDay == today {
		return s
	}
	return DailyState{
		UserID: s.UserID,
		TapDay: today,
	}
}

type TapResult struct {
	Count  int
	Capped bool
	Day    calendar.Day

	// Filled only once Count reached the cap, inside the same transaction.
	Eligibility *Eligibility
}

type Eligibility struct {
	Eligible        bool
	UsedToday       bool
	RemainingGlobal int
	Count           int
	Day             calendar.Day
	EndsAt          time.Time
}

type ClaimResult struct {
	ClaimID         uuid.UUID
	Day             calendar.Day
	RemainingGlobal int
}

type QuotaUpdate struct {
	Day             calendar.Day `json:"day"`
	RemainingGlobal int          `json:"remainingGlobal"`
}
