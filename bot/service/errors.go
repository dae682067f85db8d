// Package service implements quotebot operations over storage and market data.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/quotebot/bot/indicator"
	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/storage"
)

// Error codes surfaced to handlers and logs.
const (
	CodeInvalidSymbol   = "invalid_symbol"
	CodeUnknownSymbol   = "unknown_symbol"
	CodeBadInterval     = "bad_interval"
	CodeNoData          = "no_data"
	CodeNotEnoughData   = "not_enough_data"
	CodeInvalidArgument = "invalid_argument"
	CodeLimitReached    = "limit_reached"
	CodeDuplicate       = "duplicate"
	CodeNotFound        = "not_found"
	CodeUpstream        = "upstream"
)

// Error is a failure with a user facing message.
type Error struct {
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return e.Code + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode is read by the router summary log.
func (e *Error) ErrorCode() string { return e.Code }

func newError(code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return "Something went wrong, please try again later."
}

// CodeOf returns the service error code of err, or "" when err is not one.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// classify turns lower layer errors into service errors.
func classify(symbol string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, market.ErrInvalidSymbol):
		return newError(CodeInvalidSymbol, fmt.Sprintf("%q is not a valid symbol.", symbol), err)
	case errors.Is(err, market.ErrUnknownSymbol):
		return newError(CodeUnknownSymbol, fmt.Sprintf("Symbol %s was not found.", symbol), err)
	case errors.Is(err, market.ErrUnsupportedInterval):
		return newError(CodeBadInterval, "Unsupported interval. Use one of: "+strings.Join(market.Intervals, ", ")+".", err)
	case errors.Is(err, market.ErrNoData):
		return newError(CodeNoData, fmt.Sprintf("No market data for %s right now.", symbol), err)
	case errors.Is(err, indicator.ErrNotEnoughData):
		return newError(CodeNotEnoughData, fmt.Sprintf("Not enough history for %s on this interval.", symbol), err)
	case errors.Is(err, storage.ErrDuplicate):
		return newError(CodeDuplicate, fmt.Sprintf("%s is already there.", symbol), err)
	case errors.Is(err, storage.ErrNotFound):
		return newError(CodeNotFound, "Nothing found.", err)
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return newError(CodeUpstream, "Market data is unavailable, please try again later.", err)
}
