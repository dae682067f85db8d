package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status maps err onto the status vocabulary: ok, cancelled or fail.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "fail"
	}
}

// Took is the time since start rounded to milliseconds.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to the nearest millisecond; negatives become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins the first limit values and appends "+N" for the rest.
// The bool reports whether anything was left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	limit = max(limit, 0)
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	head := strings.Join(values[:limit], ", ")
	rest := fmt.Sprintf("+%d", len(values)-limit)
	if head == "" {
		return rest, true
	}
	return head + ", " + rest, true
}
