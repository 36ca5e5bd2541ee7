package readmodel

import (
	"log/slog"

	"github.com/randalmurphal/eventlink/pkg/eventlink/correlation"
)

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTimeouts sets the per-kind wait bounds.
func WithTimeouts(t correlation.Timeouts) Option {
	return func(a *Assembler) {
		a.timeouts = t
	}
}

// WithContentType sets the content type used for interaction requests made
// by AssemblePosts.
func WithContentType(contentType string) Option {
	return func(a *Assembler) {
		if contentType != "" {
			a.contentType = contentType
		}
	}
}
