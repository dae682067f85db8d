package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/storage"
	"github.com/m3rciful/quotebot/core/logger"
)

// Profile is the Telegram identity used to register a user.
type Profile struct {
	TelegramID   int64
	Username     string
	LanguageCode string
}

// Users manages bot users.
type Users struct {
	repo            storage.Users
	defaultInterval string
}

// NewUsers returns a Users service. defaultInterval applies to users that
// have not picked one.
func NewUsers(repo storage.Users, defaultInterval string) *Users {
	return &Users{repo: repo, defaultInterval: defaultInterval}
}

// Ensure creates the user on first contact and refreshes the profile otherwise.
func (s *Users) Ensure(ctx context.Context, p Profile) (storage.User, error) {
	u, err := s.repo.Upsert(ctx, storage.User{
		TelegramID:   p.TelegramID,
		Username:     p.Username,
		LanguageCode: p.LanguageCode,
	})
	if err != nil {
		return storage.User{}, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

// Interval returns the user's default interval or the global one.
func (s *Users) Interval(u storage.User) string {
	if u.DefaultInterval != "" {
		return u.DefaultInterval
	}
	return s.defaultInterval
}

// SetDefaultInterval validates and stores interval for u.
func (s *Users) SetDefaultInterval(ctx context.Context, u storage.User, interval string) (string, error) {
	iv, err := market.NormalizeInterval(interval)
	if err != nil {
		return "", classify("", err)
	}
	if err := s.repo.SetDefaultInterval(ctx, u.ID, iv); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", newError(CodeNotFound, "Send /start first.", err)
		}
		return "", fmt.Errorf("set interval: %w", err)
	}
	logger.LogEvent(ctx, logger.SVC, slog.LevelInfo, "user.interval",
		slog.Int64("user_id", u.ID),
		slog.String("interval", iv),
	)
	return iv, nil
}

// Count returns the number of registered users.
func (s *Users) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
