// Package storage persists users, watchlists and price alerts.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a row does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("already exists")
	// ErrLimitReached is returned when an insert would exceed a per-user cap.
	ErrLimitReached = errors.New("limit reached")
)

// User is a Telegram user known to the bot.
type User struct {
	ID           int64  `db:"id"`
	TelegramID   int64  `db:"telegram_id"`
	Username     string `db:"username"`
	LanguageCode string `db:"language_code"`
	// DefaultInterval is empty until the user picks one.
	DefaultInterval string    `db:"default_interval"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// WatchItem is one symbol on a user's watchlist.
type WatchItem struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Symbol    string    `db:"symbol"`
	CreatedAt time.Time `db:"created_at"`
}

// Condition is the direction an alert waits for.
type Condition string

// Alert conditions.
const (
	Above Condition = "above"
	Below Condition = "below"
)

// ParseCondition accepts the condition names and the > and < shorthands.
func ParseCondition(s string) (Condition, bool) {
	switch s {
	case "above", ">", ">=":
		return Above, true
	case "below", "<", "<=":
		return Below, true
	}
	return "", false
}

// Met reports whether price satisfies c against target.
func (c Condition) Met(price, target float64) bool {
	switch c {
	case Above:
		return price >= target
	case Below:
		return price <= target
	}
	return false
}

// Alert is a one-shot price alert.
type Alert struct {
	ID             int64      `db:"id"`
	UserID         int64      `db:"user_id"`
	Symbol         string     `db:"symbol"`
	Condition      Condition  `db:"condition"`
	Target         float64    `db:"target"`
	Active         bool       `db:"active"`
	CreatedAt      time.Time  `db:"created_at"`
	TriggeredAt    *time.Time `db:"triggered_at"`
	TriggeredPrice *float64   `db:"triggered_price"`
	// TelegramID is filled by ListActive so the owner can be notified.
	TelegramID int64 `db:"telegram_id"`
}

// AlertStats aggregates alert counts.
type AlertStats struct {
	Active int `db:"active"`
	Fired  int `db:"fired"`
}

// Users persists users.
type Users interface {
	// Upsert inserts u by TelegramID or refreshes its profile fields.
	Upsert(ctx context.Context, u User) (User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (User, error)
	SetDefaultInterval(ctx context.Context, userID int64, interval string) error
	Count(ctx context.Context) (int, error)
}

// Watchlist persists watchlist items.
type Watchlist interface {
	// Add inserts symbol unless it is already listed (ErrDuplicate) or the
	// user already has limit items (ErrLimitReached). limit <= 0 disables the cap.
	Add(ctx context.Context, userID int64, symbol string, limit int) (WatchItem, error)
	Remove(ctx context.Context, userID int64, symbol string) error
	List(ctx context.Context, userID int64) ([]WatchItem, error)
	Count(ctx context.Context, userID int64) (int, error)
}

// Alerts persists price alerts.
type Alerts interface {
	Create(ctx context.Context, a Alert) (Alert, error)
	ListByUser(ctx context.Context, userID int64) ([]Alert, error)
	ListActive(ctx context.Context) ([]Alert, error)
	CountActive(ctx context.Context, userID int64) (int, error)
	// Delete removes alert id if it belongs to userID.
	Delete(ctx context.Context, userID, id int64) error
	// MarkTriggered deactivates an active alert. It reports false when the
	// alert was already fired or deleted.
	MarkTriggered(ctx context.Context, id int64, price float64, at time.Time) (bool, error)
	Stats(ctx context.Context) (AlertStats, error)
}
