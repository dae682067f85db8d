package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers for updates that match no route.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// FallbackTarget receives fallback handlers, usually a telegram.Registry.
type FallbackTarget interface {
	SetTextFallback(tele.HandlerFunc)
	SetCallbackNotFound(tele.HandlerFunc)
}

// InstallFallbacks wires both of p's fallbacks into t.
func InstallFallbacks(t FallbackTarget, p FallbackProvider) {
	t.SetTextFallback(p.UnknownText())
	t.SetCallbackNotFound(p.UnknownCallback())
}
