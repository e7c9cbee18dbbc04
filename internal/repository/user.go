package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"meowchi_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type User struct {
	TelegramID       int64     `db:"telegram_id"`
	Username         string    `db:"username"`
	FirstName        string    `db:"first_name"`
	Points           int       `db:"points"`
	IsAdmin          bool      `db:"is_admin"`
	RegistrationDate time.Time `db:"registration_date"`
	AuthDate         time.Time `db:"last_auth_date"`
}

func (u User) toModel() *model.User {
	return &model.User{
		TelegramID:       u.TelegramID,
		Username:         u.Username,
		FirstName:        u.FirstName,
		Points:           u.Points,
		IsAdmin:          u.IsAdmin,
		RegistrationDate: u.RegistrationDate,
		AuthDate:         u.AuthDate,
	}
}

var userColumns = []string{
	"telegram_id", "username", "first_name", "points", "is_admin", "registration_date", "last_auth_date",
}

func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("users").
			SetMap(map[string]interface{}{
				"telegram_id":       user.TelegramID,
				"username":          user.Username,
				"first_name":        user.FirstName,
				"registration_date": user.RegistrationDate,
				"last_auth_date":    user.AuthDate,
				"points":            user.Points,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		streakQuery, streakArgs, err := squirrel.
			Insert("daily_streaks").
			SetMap(map[string]interface{}{
				"user_telegram_id": user.TelegramID,
				"consecutive_days": 0,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build daily streak insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, streakQuery, streakArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert daily streak: %w", err)
		}

		return nil
	})
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return getUser(ctx, r.db, telegramID)
}

func getUser(ctx context.Context, q sqlx.QueryerContext, telegramID int64) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = sqlx.GetContext(ctx, q, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}

	return user.toModel(), nil
}

func (r *Repository) TouchUserAuthDate(ctx context.Context, telegramID int64, authDate time.Time) error {
	query, args, err := squirrel.
		Update("users").
		Set("last_auth_date", authDate).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func updateUserPointsWithTx(ctx context.Context, tx *sqlx.Tx, telegramID int64, points int) error {
	updateQuery, updateArgs, err := squirrel.
		Update("users").
		Set("points", squirrel.Expr("points + ?", points)).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, updateQuery, updateArgs...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	var users []User

	query, args, err := squirrel.
		Select("telegram_id", "username", "first_name", "points").
		From("users").
		OrderBy("points DESC", "telegram_id").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		return nil, classify(err)
	}

	userList := make([]*model.User, len(users))
	for i, user := range users {
		userList[i] = &model.User{
			TelegramID: user.TelegramID,
			Username:   user.Username,
			FirstName:  user.FirstName,
			Points:     user.Points,
		}
	}

	return userList, nil
}
