package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/storage"
)

// pricesConcurrency bounds parallel quote requests in Prices.
const pricesConcurrency = 4

// WatchPrice is one watchlist row with its quote or the error fetching it.
type WatchPrice struct {
	Symbol string
	Quote  market.Quote
	Err    error
}

// Watchlist manages per-user symbol lists.
type Watchlist struct {
	repo   storage.Watchlist
	quotes *Quotes
	limit  int
}

// NewWatchlist returns a Watchlist service allowing up to limit symbols per user.
func NewWatchlist(repo storage.Watchlist, quotes *Quotes, limit int) *Watchlist {
	return &Watchlist{repo: repo, quotes: quotes, limit: limit}
}

// Add validates symbol against the market and appends it.
func (s *Watchlist) Add(ctx context.Context, userID int64, symbol string) (string, error) {
	q, err := s.quotes.Price(ctx, symbol)
	if err != nil {
		return "", err
	}
	if _, err := s.repo.Add(ctx, userID, q.Symbol, s.limit); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return "", newError(CodeDuplicate, fmt.Sprintf("%s is already on your watchlist.", q.Symbol), err)
		case errors.Is(err, storage.ErrLimitReached):
			return "", newError(CodeLimitReached, fmt.Sprintf("Watchlist is full (%d symbols).", s.limit), err)
		}
		return "", fmt.Errorf("add watch item: %w", err)
	}
	return q.Symbol, nil
}

// Remove deletes symbol from the user's list.
func (s *Watchlist) Remove(ctx context.Context, userID int64, symbol string) (string, error) {
	sym, err := market.NormalizeSymbol(symbol)
	if err != nil {
		return "", classify(symbol, err)
	}
	if err := s.repo.Remove(ctx, userID, sym); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", newError(CodeNotFound, fmt.Sprintf("%s is not on your watchlist.", sym), err)
		}
		return "", fmt.Errorf("remove watch item: %w", err)
	}
	return sym, nil
}

// List returns the user's symbols in order.
func (s *Watchlist) List(ctx context.Context, userID int64) ([]string, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return lo.Map(items, func(it storage.WatchItem, _ int) string { return it.Symbol }), nil
}

// Prices quotes every watched symbol. Failures are kept per row.
func (s *Watchlist) Prices(ctx context.Context, userID int64) ([]WatchPrice, error) {
	symbols, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]WatchPrice, len(symbols))
	sem := make(chan struct{}, pricesConcurrency)
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out[i] = WatchPrice{Symbol: sym, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			q, err := s.quotes.Price(ctx, sym)
			out[i] = WatchPrice{Symbol: sym, Quote: q, Err: err}
		}(i, sym)
	}
	wg.Wait()
	return out, nil
}
