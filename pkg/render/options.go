package render

import (
	theme "github.com/goliatone/go-theme"
)

// Options describe per-request data renderers use without changing the
// formset definition.
type Options struct {
	// Action and Method populate the enclosing <form>. Method defaults to
	// POST; Action empty posts back to the current URL.
	Action string
	Method string
	// Hidden is rendered as extra hidden inputs, e.g. a CSRF token.
	Hidden []HiddenField
	// Fragment omits the surrounding <html> document.
	Fragment bool
	// Theme carries the resolved theme: tokens, CSS variables and asset
	// URLs. Nil renders the unthemed defaults.
	Theme *theme.RendererConfig
}
