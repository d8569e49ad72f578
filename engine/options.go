package engine

import (
	"go.uber.org/zap"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute() and Classify()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	maxRows   int // rows rendered into TableData before truncating
	precision int // decimal places for floats; negative keeps full precision
	logger    *zap.Logger
}

// WithMaxRows caps the rows rendered into a table payload.
func WithMaxRows(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxRows = n
		}
	}
}

// WithPrecision sets the number of decimal places used when rendering floats.
func WithPrecision(p int) Option {
	return func(c *config) {
		c.precision = p
	}
}

// WithLogger attaches a logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		maxRows:   500,
		precision: 2,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
