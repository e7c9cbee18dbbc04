package repository

import (
	"context"
	"database/sql"
	"errors"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/pkg/calendar"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type dailyStreak struct {
	UserTelegramID  int64          `db:"user_telegram_id"`
	LastClaimDay    sql.NullString `db:"last_claim_day"`
	ConsecutiveDays int            `db:"consecutive_days"`
}

func (s dailyStreak) toModel() *model.Streak {
	out := &model.Streak{
		UserTelegramID:  s.UserTelegramID,
		ConsecutiveDays: s.ConsecutiveDays,
	}
	if s.LastClaimDay.Valid {
		day := calendar.Day(s.LastClaimDay.String)
		out.LastClaimDay = &day
	}
	return out
}

func selectStreak(telegramID int64) squirrel.SelectBuilder {
	return squirrel.
		Select("user_telegram_id", "last_claim_day", "consecutive_days").
		From("daily_streaks").
		Where(squirrel.Eq{"user_telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar)
}

func (r *Repository) GetStreak(ctx context.Context, telegramID int64) (*model.Streak, error) {
	query, args, err := selectStreak(telegramID).ToSql()
	if err != nil {
		return nil, err
	}

	var streak dailyStreak
	err = r.db.GetContext(ctx, &streak, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}

	return streak.toModel(), nil
}

// ClaimStreak locks the user's streak row, lets decide compute the new
// streak and reward from it, then stores both in one transaction.
func (r *Repository) ClaimStreak(
	ctx context.Context,
	telegramID int64,
	decide func(current *model.Streak) (next *model.Streak, reward int, err error),
) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := selectStreak(telegramID).Suffix("FOR UPDATE").ToSql()
		if err != nil {
			return err
		}

		var current dailyStreak
		err = tx.GetContext(ctx, &current, query, args...)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		next, reward, err := decide(current.toModel())
		if err != nil {
			return err
		}

		var lastDay interface{}
		if next.LastClaimDay != nil {
			lastDay = string(*next.LastClaimDay)
		}

		updateQuery, updateArgs, err := squirrel.
			Update("daily_streaks").
			SetMap(map[string]interface{}{
				"last_claim_day":   lastDay,
				"consecutive_days": next.ConsecutiveDays,
			}).
			Where(squirrel.Eq{"user_telegram_id": telegramID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if _, err = tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
			return err
		}

		return updateUserPointsWithTx(ctx, tx, telegramID, reward)
	})
}
