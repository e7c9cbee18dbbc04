package service

import (
	"context"
	"errors"
	"time"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/repository"
	"meowchi_miniapp/pkg/calendar"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already registered")
	ErrClaimNotAvailable = errors.New("streak reward already claimed today")
	ErrTransient         = errors.New("temporary storage failure, retry")
)

type UserServiceI interface {
	RegisterUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetLeaderboard(ctx context.Context) ([]*model.User, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	TouchUserAuthDate(ctx context.Context, telegramID int64, authDate time.Time) error
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
}

type StreakServiceI interface {
	GetStatus(ctx context.Context, telegramID int64) (*model.Streak, error)
	Claim(ctx context.Context, telegramID int64) (*model.Streak, int, error)
}

type StreakRepository interface {
	GetStreak(ctx context.Context, telegramID int64) (*model.Streak, error)
	ClaimStreak(
		ctx context.Context,
		telegramID int64,
		decide func(current *model.Streak) (*model.Streak, int, error),
	) error
}

type MeowServiceI interface {
	RecordTap(ctx context.Context, userID int64) (*model.TapResult, error)
	Peek(ctx context.Context, userID int64) (*model.DailyState, error)
	Remaining(ctx context.Context, day calendar.Day) (int, error)
	EvaluateEligibility(ctx context.Context, userID int64) (*model.Eligibility, error)
	Claim(ctx context.Context, userID int64) (*model.ClaimResult, error)
	VerifyClaim(ctx context.Context, claimID uuid.UUID, userID int64) (bool, error)
}

type MeowRepository interface {
	InMeowTx(ctx context.Context, fn func(tx repository.MeowTx) error) error
	GetDailyState(ctx context.Context, userID int64) (*model.DailyState, error)
	GetClaimsTaken(ctx context.Context, day calendar.Day) (int, error)
	ClaimExists(ctx context.Context, id uuid.UUID, userID int64) (bool, error)
}

// Notifier is told about committed claims. Failures never undo a claim.
type Notifier interface {
	NotifyClaim(ctx context.Context, userID int64, result *model.ClaimResult) error
}

type QuotaPublisher interface {
	Publish(update model.QuotaUpdate)
}

// storageErr maps repository errors onto the service's error taxonomy.
func storageErr(err error) error {
	if errors.Is(err, repository.ErrTransient) {
		return errors.Join(ErrTransient, err)
	}
	return err
}
