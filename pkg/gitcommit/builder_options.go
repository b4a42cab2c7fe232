package gitcommit

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Builder.
type Option func(*Builder)

// Logger sets the logger used by the builder.
func Logger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.l = l
		}
	}
}

// Clock sets the time source for commit signatures.
func Clock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}
