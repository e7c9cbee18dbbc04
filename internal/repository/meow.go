package repository

import (
	"context"
	"database/sql"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/pkg/calendar"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	tapsTable   = "meow_taps"
	quotaTable  = "meow_daily_claims"
	claimsTable = "meow_claims"
)

type dailyState struct {
	UserID         int64  `db:"user_id"`
	TapCount       int    `db:"tap_count"`
	TapDay         string `db:"tap_day"`
	ClaimUsedToday bool   `db:"claim_used_today"`
}

func (s dailyState) toModel() *model.DailyState {
	return &model.DailyState{
		UserID:         s.UserID,
		TapCount:       s.TapCount,
		TapDay:         calendar.Day(s.TapDay),
		ClaimUsedToday: s.ClaimUsedToday,
	}
}

// MeowTx is the set of row operations the claim ledger performs inside one
// transaction. Lock* methods hold the row until commit or rollback.
type MeowTx interface {
	LockDailyState(ctx context.Context, userID int64) (*model.DailyState, error)
	LockOrCreateDailyState(ctx context.Context, userID int64, day calendar.Day) (*model.DailyState, error)
	SaveDailyState(ctx context.Context, state *model.DailyState) error
	LockClaimsTaken(ctx context.Context, day calendar.Day) (int, error)
	GetClaimsTaken(ctx context.Context, day calendar.Day) (int, error)
	SetClaimsTaken(ctx context.Context, day calendar.Day, taken int) error
	InsertClaimRecord(ctx context.Context, id uuid.UUID, userID int64, day calendar.Day) (bool, error)
}

type meowTx struct {
	tx *sqlx.Tx
}

func (r *Repository) InMeowTx(ctx context.Context, fn func(tx MeowTx) error) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(&meowTx{tx: tx})
	})
}

func selectDailyState() squirrel.SelectBuilder {
	return squirrel.
		Select("user_id", "tap_count", "tap_day", "claim_used_today").
		From(tapsTable).
		PlaceholderFormat(squirrel.Dollar)
}

func lockDailyStateQuery(userID int64) (string, []interface{}, error) {
	return selectDailyState().
		Where(squirrel.Eq{"user_id": userID}).
		Suffix("FOR UPDATE").
		ToSql()
}

func (m *meowTx) LockDailyState(ctx context.Context, userID int64) (*model.DailyState, error) {
	query, args, err := lockDailyStateQuery(userID)
	if err != nil {
		return nil, err
	}

	var state dailyState
	err = m.tx.GetContext(ctx, &state, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lock daily state")
	}

	return state.toModel(), nil
}

func (m *meowTx) LockOrCreateDailyState(ctx context.Context, userID int64, day calendar.Day) (*model.DailyState, error) {
	query, args, err := squirrel.
		Insert(tapsTable).
		Columns("user_id", "tap_count", "tap_day", "claim_used_today").
		Values(userID, 0, string(day), false).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err = m.tx.ExecContext(ctx, query, args...); err != nil {
		return nil, errors.Wrap(err, "create daily state")
	}

	return m.LockDailyState(ctx, userID)
}

func (m *meowTx) SaveDailyState(ctx context.Context, state *model.DailyState) error {
	query, args, err := squirrel.
		Update(tapsTable).
		SetMap(map[string]interface{}{
			"tap_count":        state.TapCount,
			"tap_day":          string(state.TapDay),
			"claim_used_today": state.ClaimUsedToday,
		}).
		Where(squirrel.Eq{"user_id": state.UserID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := m.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "save daily state")
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

func ensureQuotaQuery(day calendar.Day) (string, []interface{}, error) {
	return squirrel.
		Insert(quotaTable).
		Columns("day", "claims_taken").
		Values(string(day), 0).
		Suffix("ON CONFLICT (day) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func (m *meowTx) LockClaimsTaken(ctx context.Context, day calendar.Day) (int, error) {
	query, args, err := ensureQuotaQuery(day)
	if err != nil {
		return 0, err
	}
	if _, err = m.tx.ExecContext(ctx, query, args...); err != nil {
		return 0, errors.Wrap(err, "create quota row")
	}

	query, args, err = squirrel.
		Select("claims_taken").
		From(quotaTable).
		Where(squirrel.Eq{"day": string(day)}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var taken int
	if err = m.tx.GetContext(ctx, &taken, query, args...); err != nil {
		return 0, errors.Wrap(err, "lock quota row")
	}

	return taken, nil
}

func (m *meowTx) GetClaimsTaken(ctx context.Context, day calendar.Day) (int, error) {
	return getClaimsTaken(ctx, m.tx, day)
}

func (m *meowTx) SetClaimsTaken(ctx context.Context, day calendar.Day, taken int) error {
	query, args, err := squirrel.
		Update(quotaTable).
		Set("claims_taken", taken).
		Where(squirrel.Eq{"day": string(day)}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := m.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "update quota row")
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

// InsertClaimRecord reports false when (user, day) already has a record.
func (m *meowTx) InsertClaimRecord(ctx context.Context, id uuid.UUID, userID int64, day calendar.Day) (bool, error) {
	query, args, err := squirrel.
		Insert(claimsTable).
		Columns("id", "user_id", "day", "consumed").
		Values(id, userID, string(day), false).
		Suffix("ON CONFLICT (user_id, day) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	result, err := m.tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "insert claim record")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *Repository) GetDailyState(ctx context.Context, userID int64) (*model.DailyState, error) {
	query, args, err := selectDailyState().
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var state dailyState
	err = r.db.GetContext(ctx, &state, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err)
	}

	return state.toModel(), nil
}

func (r *Repository) GetClaimsTaken(ctx context.Context, day calendar.Day) (int, error) {
	taken, err := getClaimsTaken(ctx, r.db, day)
	return taken, classify(err)
}

// ClaimExists lets downstream consumers verify that a claim id was honored.
func (r *Repository) ClaimExists(ctx context.Context, id uuid.UUID, userID int64) (bool, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From(claimsTable).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var n int
	if err = r.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, classify(err)
	}

	return n > 0, nil
}

// ResetDay force-resets every tap row not stamped with day and makes sure
// the quota row for day exists. Rows already on day are left alone so a
// late sweep never undoes claims made after midnight.
func (r *Repository) ResetDay(ctx context.Context, day calendar.Day) (int64, error) {
	var reset int64

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update(tapsTable).
			SetMap(map[string]interface{}{
				"tap_count":        0,
				"claim_used_today": false,
				"tap_day":          string(day),
			}).
			Where(squirrel.NotEq{"tap_day": string(day)}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "reset tap rows")
		}
		if reset, err = result.RowsAffected(); err != nil {
			return err
		}

		query, args, err = ensureQuotaQuery(day)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "ensure quota row")
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return reset, nil
}

func getClaimsTaken(ctx context.Context, q sqlx.QueryerContext, day calendar.Day) (int, error) {
	query, args, err := squirrel.
		Select("claims_taken").
		From(quotaTable).
		Where(squirrel.Eq{"day": string(day)}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var taken int
	err = sqlx.GetContext(ctx, q, &taken, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return taken, nil
}
