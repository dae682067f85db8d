package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Memory implements Users, Watchlist and Alerts in process. Used by tests
// and by runs without a database.
type Memory struct {
	mu     sync.Mutex
	now    func() time.Time
	seq    int64
	users  map[int64]User // keyed by TelegramID
	watch  map[int64][]WatchItem
	alerts map[int64]Alert
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		now:    time.Now,
		users:  map[int64]User{},
		watch:  map[int64][]WatchItem{},
		alerts: map[int64]Alert{},
	}
}

func (m *Memory) nextID() int64 {
	m.seq++
	return m.seq
}

// Users returns the Users view of m.
func (m *Memory) Users() Users { return memUsers{m} }

// Watchlist returns the Watchlist view of m.
func (m *Memory) Watchlist() Watchlist { return memWatchlist{m} }

// Alerts returns the Alerts view of m.
func (m *Memory) Alerts() Alerts { return memAlerts{m} }

type memUsers struct{ m *Memory }

func (r memUsers) Upsert(_ context.Context, u User) (User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := r.m.now()
	cur, ok := r.m.users[u.TelegramID]
	if !ok {
		cur = User{ID: r.m.nextID(), TelegramID: u.TelegramID, CreatedAt: now}
	}
	cur.Username = u.Username
	cur.LanguageCode = u.LanguageCode
	cur.UpdatedAt = now
	r.m.users[u.TelegramID] = cur
	return cur, nil
}

func (r memUsers) GetByTelegramID(_ context.Context, telegramID int64) (User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[telegramID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r memUsers) SetDefaultInterval(_ context.Context, userID int64, interval string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for k, u := range r.m.users {
		if u.ID == userID {
			u.DefaultInterval = interval
			u.UpdatedAt = r.m.now()
			r.m.users[k] = u
			return nil
		}
	}
	return ErrNotFound
}

func (r memUsers) Count(context.Context) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return len(r.m.users), nil
}

func (m *Memory) telegramID(userID int64) int64 {
	for _, u := range m.users {
		if u.ID == userID {
			return u.TelegramID
		}
	}
	return 0
}

type memWatchlist struct{ m *Memory }

func (r memWatchlist) Add(_ context.Context, userID int64, symbol string, limit int) (WatchItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	items := r.m.watch[userID]
	if lo.ContainsBy(items, func(it WatchItem) bool { return it.Symbol == symbol }) {
		return WatchItem{}, ErrDuplicate
	}
	if limit > 0 && len(items) >= limit {
		return WatchItem{}, ErrLimitReached
	}
	it := WatchItem{ID: r.m.nextID(), UserID: userID, Symbol: symbol, CreatedAt: r.m.now()}
	r.m.watch[userID] = append(items, it)
	return it, nil
}

func (r memWatchlist) Remove(_ context.Context, userID int64, symbol string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	items := r.m.watch[userID]
	kept := lo.Reject(items, func(it WatchItem, _ int) bool { return it.Symbol == symbol })
	if len(kept) == len(items) {
		return ErrNotFound
	}
	r.m.watch[userID] = kept
	return nil
}

func (r memWatchlist) List(_ context.Context, userID int64) ([]WatchItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := append([]WatchItem(nil), r.m.watch[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (r memWatchlist) Count(_ context.Context, userID int64) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return len(r.m.watch[userID]), nil
}

type memAlerts struct{ m *Memory }

func (r memAlerts) Create(_ context.Context, a Alert) (Alert, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a.ID = r.m.nextID()
	a.Active = true
	a.CreatedAt = r.m.now()
	a.TriggeredAt, a.TriggeredPrice, a.TelegramID = nil, nil, 0
	r.m.alerts[a.ID] = a
	return a, nil
}

func (r memAlerts) sorted(keep func(Alert) bool) []Alert {
	out := lo.Filter(lo.Values(r.m.alerts), func(a Alert, _ int) bool { return keep(a) })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memAlerts) ListByUser(_ context.Context, userID int64) ([]Alert, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := r.sorted(func(a Alert) bool { return a.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Active && !out[j].Active })
	return out, nil
}

func (r memAlerts) ListActive(context.Context) ([]Alert, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := r.sorted(func(a Alert) bool { return a.Active })
	for i := range out {
		out[i].TelegramID = r.m.telegramID(out[i].UserID)
	}
	return out, nil
}

func (r memAlerts) CountActive(_ context.Context, userID int64) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return lo.CountBy(lo.Values(r.m.alerts), func(a Alert) bool { return a.UserID == userID && a.Active }), nil
}

func (r memAlerts) Delete(_ context.Context, userID, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.alerts[id]
	if !ok || a.UserID != userID {
		return ErrNotFound
	}
	delete(r.m.alerts, id)
	return nil
}

func (r memAlerts) MarkTriggered(_ context.Context, id int64, price float64, at time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.alerts[id]
	if !ok || !a.Active {
		return false, nil
	}
	a.Active = false
	a.TriggeredAt = &at
	a.TriggeredPrice = &price
	r.m.alerts[id] = a
	return true, nil
}

func (r memAlerts) Stats(context.Context) (AlertStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var st AlertStats
	for _, a := range r.m.alerts {
		if a.Active {
			st.Active++
		} else {
			st.Fired++
		}
	}
	return st, nil
}
