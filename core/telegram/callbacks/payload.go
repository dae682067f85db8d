// Package callbacks decodes telebot inline button data of the form
// "\f<unique>|<payload>".
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Sep separates payload fields inside a single button.
const Sep = "|"

// ParseCallbackData splits cb into its unique key and payload.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	raw = strings.TrimPrefix(raw, "\\f")
	if cb.Unique != "" {
		// telebot already split the unique part off Data.
		return cb.Unique, raw
	}
	key, payload, _ := strings.Cut(raw, Sep)
	return strings.TrimSpace(key), payload
}

// Key returns the unique key of the current callback.
func Key(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// Payload returns the payload of the current callback.
func Payload(c tele.Context) string {
	_, p := ParseCallbackData(c.Callback())
	return p
}

// PayloadInt64 parses the payload as int64.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(Payload(c)), 10, 64)
}

// PayloadParts splits the payload into exactly n fields.
func PayloadParts(c tele.Context, n int) ([]string, error) {
	p := Payload(c)
	if p == "" {
		return nil, strconv.ErrSyntax
	}
	parts := strings.Split(p, Sep)
	if len(parts) != n {
		return nil, strconv.ErrSyntax
	}
	return parts, nil
}

// Join builds a payload from fields.
func Join(fields ...string) string {
	return strings.Join(fields, Sep)
}
