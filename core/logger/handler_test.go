package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// capture runs emit against a fresh handler and returns the trimmed output.
func capture(t *testing.T, format logFormat, level slog.Leveler, emit func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:    level,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	emit(slog.New(h))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

// assertOrdered fails unless every part occurs in line, in order.
func assertOrdered(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		if idx == -1 || idx < pos {
			t.Fatalf("%q missing or out of order in %s", p, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
	line := capture(t, formatKV, slog.LevelInfo, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "market"), slog.LevelInfo, "quote.fetch",
			slog.String("status", "ok"),
			slog.String("symbol", "BTCUSDT"),
		)
	})
	tokens := strings.Fields(line)
	want := []string{"ts=", "level=INFO", "component=market", "event=quote.fetch", "status=ok", "rid=rid-123"}
	if len(tokens) < len(want) {
		t.Fatalf("too few tokens in %s", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-json"), 11, 22, 33)
	line := capture(t, formatJSON, slog.LevelInfo, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "alerts"), slog.LevelError, "alerts.fire",
			slog.String("status", "fail"),
			slog.String("err", "blocked"),
			slog.String("err_code", "upstream"),
		)
	})
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	assertOrdered(t, line,
		`{"ts":`, `"level":"ERROR"`, `"component":"alerts"`, `"event":"alerts.fire"`, `"status":"fail"`, `"rid":"rid-json"`)
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	cases := []struct {
		name   string
		format logFormat
		rid    string
		want   []string
		absent []string
	}{
		{
			name:   "kv",
			format: formatKV,
			rid:    "123:456:789",
			want:   []string{"rid=" + CompactRID("123:456:789")},
			absent: []string{"rid_full="},
		},
		{
			name:   "json",
			format: formatJSON,
			rid:    "12:34:56",
			want:   []string{`"rid":"` + CompactRID("12:34:56") + `"`, `"rid_full":"12:34:56"`, `"ts_unix_nano"`},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := WithRID(Background(), tc.rid)
			line := capture(t, tc.format, slog.LevelInfo, func(l *slog.Logger) {
				LogEvent(ctx, l, slog.LevelInfo, "rid.test", slog.String("status", "ok"))
			})
			for _, w := range tc.want {
				if !strings.Contains(line, w) {
					t.Fatalf("expected %s in %s", w, line)
				}
			}
			for _, a := range tc.absent {
				if strings.Contains(line, a) {
					t.Fatalf("unexpected %s in %s", a, line)
				}
			}
		})
	}
}

func TestStructuredHandlerDurationAndJob(t *testing.T) {
	ctx := WithJob(Background(), "alerts.sweep")
	line := capture(t, formatKV, slog.LevelInfo, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "alerts"), slog.LevelInfo, "sweep.done",
			slog.Duration("duration", 1500*time.Microsecond),
			slog.Duration("fetch", 20*time.Millisecond),
			slog.String("outcome", "bogus"),
		)
	})
	for _, want := range []string{"job=alerts.sweep", "duration_ms=2", "fetch_ms=20"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
	if strings.Contains(line, "outcome=") {
		t.Fatalf("unknown outcome should be dropped, got %s", line)
	}
}

func TestStructuredHandlerKeepsFiredOutcome(t *testing.T) {
	line := capture(t, formatKV, slog.LevelInfo, func(l *slog.Logger) {
		LogEvent(context.Background(), l, slog.LevelInfo, "alerts.fire",
			slog.String("status", Status(context.Canceled)),
			slog.String("outcome", "fired"),
		)
	})
	for _, want := range []string{"outcome=fired", "status=cancelled"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	out := capture(t, formatJSON, slog.LevelWarn, func(l *slog.Logger) {
		l.Info("ignored")
		l.Warn("kept")
	})
	if strings.Contains(out, "ignored") {
		t.Fatalf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, `"event":"kept"`) || !strings.Contains(out, `"component":"app"`) {
		t.Fatalf("expected warn record with defaults, got %s", out)
	}
}

func TestCompactRIDPassthrough(t *testing.T) {
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID passthrough = %q", got)
	}
	if got := CompactRID("35:36:0"); got != "z.10.0" {
		t.Fatalf("CompactRID = %q, want z.10.0", got)
	}
}
