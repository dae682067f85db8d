package state

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a dialog step.
type State string

// StateIdle means there is no active dialog with the user.
const StateIdle State = "idle"

// Session stores the dialog step and scratch values for a user.
type Session struct {
	State     State
	TempData  map[string]any
	UpdatedAt time.Time
}

// Manager orchestrates user sessions and state transitions.
type Manager interface {
	SetState(userID int64, st State)
	GetState(userID int64) State
	SetTemp(userID int64, key string, value any)
	GetTemp(userID int64, key string) (any, bool)
	Clear(userID int64)

	// Handle registers the handler that receives free text in state st.
	Handle(st State, h tele.HandlerFunc)
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// Temp reads a typed scratch value.
func Temp[T any](m Manager, userID int64, key string) (T, bool) {
	var zero T
	v, ok := m.GetTemp(userID, key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
