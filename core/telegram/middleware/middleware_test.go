package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the middlewares touch.
type fakeContext struct {
	tele.Context
	upd   tele.Update
	store map[string]any
	sent  []any
}

func newMessageContext(updateID int, userID int64, text string) *fakeContext {
	user := &tele.User{ID: userID}
	return &fakeContext{
		upd: tele.Update{ID: updateID, Message: &tele.Message{
			Sender: user,
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		}},
		store: map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update { return f.upd }
func (f *fakeContext) Text() string        { return f.upd.Message.Text }
func (f *fakeContext) Get(k string) any    { return f.store[k] }
func (f *fakeContext) Set(k string, v any) { f.store[k] = v }

func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.upd.Callback != nil:
		return f.upd.Callback.Sender
	case f.upd.Message != nil:
		return f.upd.Message.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.upd.Message != nil {
		return f.upd.Message.Chat
	}
	return nil
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(newMessageContext(1, 10, "/price BTC")))
	require.NoError(t, h(newMessageContext(2, 10, "/price ETH")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, limited)

	// other users are independent
	require.NoError(t, h(newMessageContext(3, 11, "/price ETH")))
	assert.Equal(t, 2, calls)

	// excluded kinds bypass the limiter
	cb := &fakeContext{upd: tele.Update{ID: 4, Callback: &tele.Callback{Sender: &tele.User{ID: 10}}}, store: map[string]any{}}
	require.NoError(t, h(cb))
	assert.Equal(t, 3, calls)

	now = now.Add(1100 * time.Millisecond)
	require.NoError(t, h(newMessageContext(5, 10, "/price BTC")))
	assert.Equal(t, 4, calls)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newMessageContext(1, 1, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return want })(newMessageContext(2, 1, "x")), want)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{AdminID: 99, OnReject: func(tele.Context) error { rejected++; return nil }})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(newMessageContext(1, 5, "/stats")))
	require.NoError(t, h(newMessageContext(2, 99, "/stats")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rejected)

	open := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { calls++; return nil })
	require.NoError(t, open(newMessageContext(3, 99, "/stats")))
	assert.Equal(t, 1, calls)
}

func TestMessageMetricsMiddlewareCounts(t *testing.T) {
	c := newMessageContext(1, 1, "/help")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("one")
		return c.Send("two", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})
	require.NoError(t, h(c))

	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}

func TestLoggerMiddlewareStoresRID(t *testing.T) {
	c := newMessageContext(42, 7, "/start")
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get("rid").(string)
		return nil
	})
	require.NoError(t, h(c))
	assert.NotEmpty(t, rid)
	assert.NotNil(t, c.Get("logger_ctx"))
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, "message", UpdateKind(tele.Update{Message: &tele.Message{}}))
	assert.Equal(t, "callback", UpdateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, "inline_query", UpdateKind(tele.Update{Query: &tele.Query{}}))
	assert.Equal(t, "other", UpdateKind(tele.Update{}))
}
