package router

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/quotebot/core/telegram"
	"github.com/m3rciful/quotebot/core/telegram/commands"
)

type codedErr struct{ code string }

func (e *codedErr) Error() string     { return "coded: " + e.code }
func (e *codedErr) ErrorCode() string { return e.code }

type plainErr struct{}

func (plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"coded", &codedErr{code: "limit_reached"}, "LIMIT_REACHED"},
		{"wrapped coded", fmt.Errorf("watch: %w", &codedErr{code: "not found"}), "NOT_FOUND"},
		{"blank code falls back to type", &codedErr{code: " "}, "CODEDERR"},
		{"named type", plainErr{}, "PLAINERR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveErrorCode(tc.err); got != tc.want {
				t.Fatalf("deriveErrorCode = %q, want %q", got, tc.want)
			}
		})
	}
	if got := deriveErrorCode(errors.New("x")); got == "" {
		t.Fatal("anonymous errors still get a code")
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	cases := map[string]string{
		"/Price":      "price",
		"  ":          "unknown",
		"alert input": "alert_input",
	}
	for in, want := range cases {
		if got := normalizeHandlerName(in); got != want {
			t.Errorf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	noop := func(tele.Context) error { return nil }
	mustRegister(t, reg, "/price", commands.Command{Handler: noop, Description: "Latest price", Aliases: []string{"p"}})
	mustRegister(t, reg, "/watchlist", commands.Command{Handler: noop, Description: "Watchlist", Aliases: []string{"/wl"}})
	mustRegister(t, reg, "/stats", commands.Command{Handler: noop, Description: "Stats", AdminOnly: true})

	routes := CommandRoutes(reg, CommandRouteOptions{AdminID: 1})
	var got []string
	for _, r := range routes {
		ep, ok := r.Endpoint.(string)
		if !ok {
			t.Fatalf("endpoint %v is not a string", r.Endpoint)
		}
		if r.Handler == nil {
			t.Fatalf("route %s has no handler", ep)
		}
		got = append(got, ep)
	}
	sort.Strings(got)
	want := []string{"/p", "/price", "/stats", "/watchlist", "/wl"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("endpoints = %v, want %v", got, want)
	}
}

func TestCommandRoutesNilRegistry(t *testing.T) {
	if routes := CommandRoutes(nil, CommandRouteOptions{}); routes != nil {
		t.Fatalf("expected no routes, got %d", len(routes))
	}
}

// textContext implements the parts of tele.Context the text router touches.
type textContext struct {
	tele.Context
	upd   tele.Update
	store map[string]any
}

func newTextContext(userID int64, text string) *textContext {
	return &textContext{
		upd: tele.Update{ID: 1, Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		}},
		store: map[string]any{},
	}
}

func (c *textContext) Update() tele.Update { return c.upd }
func (c *textContext) Text() string        { return c.upd.Message.Text }
func (c *textContext) Sender() *tele.User  { return c.upd.Message.Sender }
func (c *textContext) Chat() *tele.Chat    { return c.upd.Message.Chat }
func (c *textContext) Get(k string) any    { return c.store[k] }
func (c *textContext) Set(k string, v any) { c.store[k] = v }

func TestTextRoutesGuardAdminCommands(t *testing.T) {
	reg := tg.NewRegistry()
	var ran, rejected, unknown int
	mustRegister(t, reg, "/stats", commands.Command{
		Handler:     func(tele.Context) error { ran++; return nil },
		Description: "Stats",
		AdminOnly:   true,
	})

	routes := TextRoutes(nil, reg, TextOptions{
		AdminID:       42,
		OnAdminReject: func(tele.Context) error { rejected++; return nil },
		UnknownText:   func(tele.Context) error { unknown++; return nil },
	})
	if len(routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(routes))
	}
	h := routes[0].Handler

	if err := h(newTextContext(7, "/STATS")); err != nil {
		t.Fatalf("non-admin: %v", err)
	}
	if ran != 0 || rejected != 1 || unknown != 0 {
		t.Fatalf("non-admin: ran=%d rejected=%d unknown=%d", ran, rejected, unknown)
	}

	if err := h(newTextContext(42, "/Stats@quotebot")); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if ran != 1 || rejected != 1 || unknown != 0 {
		t.Fatalf("admin: ran=%d rejected=%d unknown=%d", ran, rejected, unknown)
	}
}

func mustRegister(t *testing.T, reg *tg.Registry, name string, cmd commands.Command) {
	t.Helper()
	if err := reg.RegisterCommand(name, cmd); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
}
