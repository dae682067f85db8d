package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/quotebot/core/logger"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func safeRollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.DB.Warn("rollback failed", slog.String("event", "db.rollback"), logger.Err(err))
	}
}

// Postgres implements Users, Watchlist and Alerts on sqlx.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps db.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Users returns the Users view of p.
func (p *Postgres) Users() Users { return pgUsers{p.db} }

// Watchlist returns the Watchlist view of p.
func (p *Postgres) Watchlist() Watchlist { return pgWatchlist{p.db} }

// Alerts returns the Alerts view of p.
func (p *Postgres) Alerts() Alerts { return pgAlerts{p.db} }

type pgUsers struct{ db *sqlx.DB }

func (r pgUsers) Upsert(ctx context.Context, u User) (User, error) {
	const q = `
        INSERT INTO users (telegram_id, username, language_code)
        VALUES ($1, $2, $3)
        ON CONFLICT (telegram_id) DO UPDATE
           SET username = EXCLUDED.username,
               language_code = EXCLUDED.language_code,
               updated_at = now()
        RETURNING id, telegram_id, username, language_code, default_interval, created_at, updated_at`
	var out User
	if err := r.db.GetContext(ctx, &out, q, u.TelegramID, u.Username, u.LanguageCode); err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return out, nil
}

func (r pgUsers) GetByTelegramID(ctx context.Context, telegramID int64) (User, error) {
	const q = `
        SELECT id, telegram_id, username, language_code, default_interval, created_at, updated_at
          FROM users
         WHERE telegram_id = $1`
	var out User
	if err := r.db.GetContext(ctx, &out, q, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return out, nil
}

func (r pgUsers) SetDefaultInterval(ctx context.Context, userID int64, interval string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET default_interval = $2, updated_at = now() WHERE id = $1`, userID, interval)
	if err != nil {
		return fmt.Errorf("set default interval: %w", err)
	}
	return expectRow(res)
}

func (r pgUsers) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

type pgWatchlist struct{ db *sqlx.DB }

// Add locks the owner's users row so concurrent adds for one user serialize
// on the duplicate and limit checks.
func (r pgWatchlist) Add(ctx context.Context, userID int64, symbol string, limit int) (WatchItem, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return WatchItem{}, fmt.Errorf("add watch item: begin: %w", err)
	}
	defer safeRollback(tx)

	var owner int64
	if err := tx.GetContext(ctx, &owner, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WatchItem{}, ErrNotFound
		}
		return WatchItem{}, fmt.Errorf("add watch item: lock user: %w", err)
	}

	// Runs after the lock so it sees rows committed by the previous holder.
	var state struct {
		Listed bool `db:"listed"`
		Count  int  `db:"count"`
	}
	const check = `
        SELECT bool_or(symbol = $2) IS TRUE AS listed, count(*) AS count
          FROM watchlist
         WHERE user_id = $1`
	if err := tx.GetContext(ctx, &state, check, userID, symbol); err != nil {
		return WatchItem{}, fmt.Errorf("add watch item: check: %w", err)
	}
	switch {
	case state.Listed:
		return WatchItem{}, ErrDuplicate
	case limit > 0 && state.Count >= limit:
		return WatchItem{}, ErrLimitReached
	}

	const q = `
        INSERT INTO watchlist (user_id, symbol)
        VALUES ($1, $2)
        RETURNING id, user_id, symbol, created_at`
	var out WatchItem
	if err := tx.GetContext(ctx, &out, q, userID, symbol); err != nil {
		if isUniqueViolation(err) {
			return WatchItem{}, ErrDuplicate
		}
		return WatchItem{}, fmt.Errorf("add watch item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return WatchItem{}, fmt.Errorf("add watch item: commit: %w", err)
	}
	return out, nil
}

func (r pgWatchlist) Remove(ctx context.Context, userID int64, symbol string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM watchlist WHERE user_id = $1 AND symbol = $2`, userID, symbol)
	if err != nil {
		return fmt.Errorf("remove watch item: %w", err)
	}
	return expectRow(res)
}

func (r pgWatchlist) List(ctx context.Context, userID int64) ([]WatchItem, error) {
	const q = `
        SELECT id, user_id, symbol, created_at
          FROM watchlist
         WHERE user_id = $1
         ORDER BY symbol`
	var out []WatchItem
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return out, nil
}

func (r pgWatchlist) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM watchlist WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count watchlist: %w", err)
	}
	return n, nil
}

type pgAlerts struct{ db *sqlx.DB }

const alertColumns = `a.id, a.user_id, a.symbol, a.condition, a.target, a.active,
               a.created_at, a.triggered_at, a.triggered_price`

func (r pgAlerts) Create(ctx context.Context, a Alert) (Alert, error) {
	const q = `
        INSERT INTO alerts AS a (user_id, symbol, condition, target)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + alertColumns
	var out Alert
	if err := r.db.GetContext(ctx, &out, q, a.UserID, a.Symbol, a.Condition, a.Target); err != nil {
		return Alert{}, fmt.Errorf("create alert: %w", err)
	}
	return out, nil
}

func (r pgAlerts) ListByUser(ctx context.Context, userID int64) ([]Alert, error) {
	q := `
        SELECT ` + alertColumns + `
          FROM alerts a
         WHERE a.user_id = $1
         ORDER BY a.active DESC, a.id`
	var out []Alert
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return out, nil
}

func (r pgAlerts) ListActive(ctx context.Context) ([]Alert, error) {
	q := `
        SELECT ` + alertColumns + `, u.telegram_id
          FROM alerts a
          JOIN users u ON u.id = a.user_id
         WHERE a.active
         ORDER BY a.symbol, a.id`
	var out []Alert
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	return out, nil
}

func (r pgAlerts) CountActive(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM alerts WHERE user_id = $1 AND active`, userID); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

func (r pgAlerts) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	return expectRow(res)
}

func (r pgAlerts) MarkTriggered(ctx context.Context, id int64, price float64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE alerts
           SET active = FALSE, triggered_at = $2, triggered_price = $3
         WHERE id = $1 AND active`, id, at, price)
	if err != nil {
		return false, fmt.Errorf("mark alert triggered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark alert triggered: %w", err)
	}
	return n == 1, nil
}

func (r pgAlerts) Stats(ctx context.Context) (AlertStats, error) {
	const q = `
        SELECT count(*) FILTER (WHERE active)     AS active,
               count(*) FILTER (WHERE NOT active) AS fired
          FROM alerts`
	var out AlertStats
	if err := r.db.GetContext(ctx, &out, q); err != nil {
		return AlertStats{}, fmt.Errorf("alert stats: %w", err)
	}
	return out, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
