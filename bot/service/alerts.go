package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/quotebot/bot/storage"
	"github.com/m3rciful/quotebot/core/logger"
)

// Alerts manages price alerts.
type Alerts struct {
	repo   storage.Alerts
	quotes *Quotes
	limit  int
}

// NewAlerts returns an Alerts service allowing up to limit active alerts per user.
func NewAlerts(repo storage.Alerts, quotes *Quotes, limit int) *Alerts {
	return &Alerts{repo: repo, quotes: quotes, limit: limit}
}

// Create validates the request and stores a new alert. The symbol must
// resolve to a live quote.
func (s *Alerts) Create(ctx context.Context, userID int64, symbol string, cond storage.Condition, target float64) (storage.Alert, error) {
	if cond != storage.Above && cond != storage.Below {
		return storage.Alert{}, newError(CodeInvalidArgument, "Condition must be above or below.", nil)
	}
	if !(target > 0) {
		return storage.Alert{}, newError(CodeInvalidArgument, "Target price must be a positive number.", nil)
	}
	q, err := s.quotes.Price(ctx, symbol)
	if err != nil {
		return storage.Alert{}, err
	}
	n, err := s.repo.CountActive(ctx, userID)
	if err != nil {
		return storage.Alert{}, fmt.Errorf("count alerts: %w", err)
	}
	if s.limit > 0 && n >= s.limit {
		return storage.Alert{}, newError(CodeLimitReached, fmt.Sprintf("You already have %d active alerts.", s.limit), nil)
	}
	a, err := s.repo.Create(ctx, storage.Alert{
		UserID:    userID,
		Symbol:    q.Symbol,
		Condition: cond,
		Target:    target,
	})
	if err != nil {
		return storage.Alert{}, fmt.Errorf("create alert: %w", err)
	}
	logger.LogEvent(ctx, logger.SVC, slog.LevelInfo, "alert.created",
		slog.Int64("alert_id", a.ID),
		slog.String("symbol", a.Symbol),
		slog.String("condition", string(a.Condition)),
		slog.Float64("target", a.Target),
	)
	return a, nil
}

// List returns the user's alerts, active first.
func (s *Alerts) List(ctx context.Context, userID int64) ([]storage.Alert, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return list, nil
}

// Delete removes alert id if it belongs to userID.
func (s *Alerts) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return newError(CodeNotFound, fmt.Sprintf("Alert #%d not found.", id), err)
		}
		return fmt.Errorf("delete alert: %w", err)
	}
	return nil
}

// Stats returns global alert counters.
func (s *Alerts) Stats(ctx context.Context) (storage.AlertStats, error) {
	return s.repo.Stats(ctx)
}
