// Package state provides a small per-user FSM for multi-step dialogs.
package state
