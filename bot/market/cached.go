package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/m3rciful/quotebot/core/logger"
)

// CacheOptions sets time-to-live per data kind. Zero disables that kind.
type CacheOptions struct {
	QuoteTTL  time.Duration
	CandleTTL time.Duration
}

// CachedFeeder memoizes another Feeder in an in-memory buntdb with per-key TTL.
// Cache failures are logged and fall through to the wrapped feeder.
type CachedFeeder struct {
	next Feeder
	db   *buntdb.DB
	opts CacheOptions
}

// NewCachedFeeder opens the in-memory store.
func NewCachedFeeder(next Feeder, opts CacheOptions) (*CachedFeeder, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("market cache: open: %w", err)
	}
	if err := db.SetConfig(buntdb.Config{SyncPolicy: buntdb.Never, AutoShrinkDisabled: true}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("market cache: configure: %w", err)
	}
	return &CachedFeeder{next: next, db: db, opts: opts}, nil
}

// Name implements Feeder.
func (c *CachedFeeder) Name() string { return c.next.Name() }

// Close releases the store.
func (c *CachedFeeder) Close() error { return c.db.Close() }

// Quote implements Feeder.
func (c *CachedFeeder) Quote(ctx context.Context, symbol string) (Quote, error) {
	key := "quote:" + symbol
	var q Quote
	if c.opts.QuoteTTL > 0 && c.get(key, &q) {
		return q, nil
	}
	q, err := c.next.Quote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	c.set(key, q, c.opts.QuoteTTL)
	return q, nil
}

// Candles implements Feeder. Entries never outlive one bar of the interval.
func (c *CachedFeeder) Candles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	ttl := c.opts.CandleTTL
	if step, err := IntervalDuration(interval); err == nil && step < ttl {
		ttl = step
	}
	key := fmt.Sprintf("candles:%s:%s:%d", symbol, interval, limit)
	var out []Candle
	if ttl > 0 && c.get(key, &out) {
		return out, nil
	}
	out, err := c.next.Candles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	c.set(key, out, ttl)
	return out, nil
}

func (c *CachedFeeder) get(key string, dst any) bool {
	var raw string
	err := c.db.View(func(tx *buntdb.Tx) error {
		var err error
		raw, err = tx.Get(key)
		return err
	})
	if err != nil {
		if !errors.Is(err, buntdb.ErrNotFound) {
			logger.MKT.Warn("cache read failed", slog.String("event", "cache.get"), slog.String("key", key), logger.Err(err))
		}
		cacheTotal.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		cacheTotal.WithLabelValues("miss").Inc()
		return false
	}
	cacheTotal.WithLabelValues("hit").Inc()
	return true
}

func (c *CachedFeeder) set(key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	err = c.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(raw), &buntdb.SetOptions{Expires: true, TTL: ttl})
		return err
	})
	if err != nil {
		logger.MKT.Warn("cache write failed", slog.String("event", "cache.set"), slog.String("key", key), logger.Err(err))
	}
}
