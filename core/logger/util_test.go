package logger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"":      {0, 0},
		"off":   {0, 0},
		"1/50":  {1, 50},
		" 3/ 4": {3, 4},
		"20":    {1, 20},
		"10%":   {10, 100},
		"100%":  {0, 0},
		"x/2":   {0, 0},
		"-5":    {0, 0},
	}
	for spec, want := range cases {
		num, den := parseRatioSpec(spec)
		if num != want[0] || den != want[1] {
			t.Errorf("parseRatioSpec(%q) = %d/%d, want %d/%d", spec, num, den, want[0], want[1])
		}
	}
}

func TestRatioSamplerWindow(t *testing.T) {
	s := newRatioSampler(2, 5)
	var got []bool
	for i := 0; i < 10; i++ {
		got = append(got, s.Allow())
	}
	want := []bool{true, true, false, false, false, true, true, false, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Allow #%d = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}

	s.Set(0, 0)
	for i := 0; i < 3; i++ {
		if !s.Allow() {
			t.Fatal("disabled sampler must allow every record")
		}
	}

	s.Set(9, 3)
	for i := 0; i < 6; i++ {
		if !s.Allow() {
			t.Fatal("ratio above one is clamped to allow all")
		}
	}
}

func TestStatus(t *testing.T) {
	if got := Status(nil); got != "ok" {
		t.Fatalf("Status(nil) = %q", got)
	}
	if got := Status(errors.New("boom")); got != "fail" {
		t.Fatalf("Status(err) = %q", got)
	}
	if got := Status(fmt.Errorf("fetch: %w", context.Canceled)); got != "cancelled" {
		t.Fatalf("Status(canceled) = %q", got)
	}
}

func TestSummarizeStrings(t *testing.T) {
	files := []string{"a.sql", "b.sql", "c.sql"}
	if got, cut := SummarizeStrings(files, 5); got != "a.sql, b.sql, c.sql" || cut {
		t.Fatalf("no truncation: %q %v", got, cut)
	}
	if got, cut := SummarizeStrings(files, 2); got != "a.sql, b.sql, +1" || !cut {
		t.Fatalf("truncated: %q %v", got, cut)
	}
	if got, cut := SummarizeStrings(files, 0); got != "+3" || !cut {
		t.Fatalf("zero limit: %q %v", got, cut)
	}
	if got, cut := SummarizeStrings(nil, 0); got != "" || cut {
		t.Fatalf("empty: %q %v", got, cut)
	}
}

func TestRoundMS(t *testing.T) {
	if got := RoundMS(-time.Second); got != 0 {
		t.Fatalf("negative = %v", got)
	}
	if got := RoundMS(1499 * time.Microsecond); got != time.Millisecond {
		t.Fatalf("round = %v", got)
	}
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestAsyncWriterFanOut(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{a, nil, b}, 16)
	for i := 0; i < 50; i++ {
		if err := w.Write([]byte(fmt.Sprintf("line %d\n", i))); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n := strings.Count(a.String(), "\n"); n != 50 {
		t.Fatalf("sink a got %d lines", n)
	}
	if a.String() != b.String() {
		t.Fatal("sinks diverged")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := w.Write([]byte("late\n")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("write after close = %v", err)
	}
}

func TestAsyncWriterReportsSinkError(t *testing.T) {
	boom := errors.New("disk full")
	w := newAsyncWriter([]io.Writer{failingWriter{err: boom}}, 1)
	_ = w.Write([]byte("x\n"))
	if err := w.Close(); !errors.Is(err, boom) {
		t.Fatalf("close = %v, want %v", err, boom)
	}
}
