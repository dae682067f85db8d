//go:build integration

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	m, err := migrate.New("file://../../migrations", dsn)
	require.NoError(t, err)
	_ = m.Down()
	require.NoError(t, m.Up())
	_, _ = m.Close()

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db)
}

func TestPostgresRepositories(t *testing.T) {
	ctx := context.Background()
	pg := openTestDB(t)
	require.NoError(t, pg.Ping(ctx))

	u, err := pg.Users().Upsert(ctx, User{TelegramID: 1001, Username: "bob"})
	require.NoError(t, err)
	require.NoError(t, pg.Users().SetDefaultInterval(ctx, u.ID, "1d"))
	got, err := pg.Users().GetByTelegramID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "1d", got.DefaultInterval)

	_, err = pg.Watchlist().Add(ctx, u.ID, "AAPL", 1)
	require.NoError(t, err)
	_, err = pg.Watchlist().Add(ctx, u.ID, "AAPL", 1)
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = pg.Watchlist().Add(ctx, u.ID, "MSFT", 1)
	assert.ErrorIs(t, err, ErrLimitReached)
	assert.ErrorIs(t, pg.Watchlist().Remove(ctx, u.ID, "MSFT"), ErrNotFound)

	a, err := pg.Alerts().Create(ctx, Alert{UserID: u.ID, Symbol: "AAPL", Condition: Above, Target: 200})
	require.NoError(t, err)
	active, err := pg.Alerts().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(1001), active[0].TelegramID)

	ok, err := pg.Alerts().MarkTriggered(ctx, a.ID, 201, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = pg.Alerts().MarkTriggered(ctx, a.ID, 202, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	st, err := pg.Alerts().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, AlertStats{Active: 0, Fired: 1}, st)

	assert.ErrorIs(t, pg.Alerts().Delete(ctx, u.ID+1, a.ID), ErrNotFound)
	require.NoError(t, pg.Alerts().Delete(ctx, u.ID, a.ID))
}
