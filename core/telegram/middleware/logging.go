package middleware

import (
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quotebot/core/logger"
	"github.com/m3rciful/quotebot/core/metrics"
	"github.com/m3rciful/quotebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/quotebot/core/telegram/helpers"
)

// seen remembers recently received update IDs so that a middleware applied on
// both the global chain and a route logs the receipt once.
var seen = struct {
	sync.Mutex
	ids   map[int]time.Time
	sweep time.Time
}{ids: make(map[int]time.Time)}

const seenTTL = 10 * time.Second

func firstSeen(updateID int) bool {
	now := time.Now()
	seen.Lock()
	defer seen.Unlock()
	if now.Sub(seen.sweep) > seenTTL {
		for id, ts := range seen.ids {
			if now.Sub(ts) > seenTTL {
				delete(seen.ids, id)
			}
		}
		seen.sweep = now
	}
	if _, ok := seen.ids[updateID]; ok {
		return false
	}
	seen.ids[updateID] = now
	return true
}

// LoggerMiddleware stores a request context with rid and update metadata and
// logs one receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		var chatID, userID int64
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)

		ctx := logger.WithRID(logger.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.TG)
		tghelpers.StoreContext(c, ctx)

		if !firstSeen(upd.ID) {
			return next(c)
		}
		kind := UpdateKind(upd)
		metrics.UpdatesTotal.WithLabelValues(kind).Inc()

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", kind),
			}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.ParseCallbackData(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 128)),
					slog.String("payload", logger.SanitizeLimit(payload, 256)),
				)
			case upd.Query != nil:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Query.Text, 256)))
			case upd.Message != nil:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
			}
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		}
		return next(c)
	}
}
