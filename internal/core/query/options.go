package query

import (
	"log/slog"
	"strings"
)

// Policy decides what happens to a criterion that cannot be built.
type Policy int

const (
	// Strict aborts construction with the error.
	Strict Policy = iota
	// Lenient drops the criterion and carries on.
	Lenient
)

// ParsePolicy reads "strict" or "lenient"; anything else is Strict.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), "lenient") {
		return Lenient
	}
	return Strict
}

func (p Policy) String() string {
	if p == Lenient {
		return "lenient"
	}
	return "strict"
}

type options struct {
	policy     Policy
	connective string
	logger     *slog.Logger
}

// Option configures predicate construction for one call.
type Option func(*options)

// WithPolicy selects strict or lenient handling of failing criteria.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithConnective sets the token used to join criteria ("AND" by default).
func WithConnective(token string) Option {
	return func(o *options) { o.connective = token }
}

// WithLogger routes notes about dropped criteria to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) *options {
	o := &options{policy: Strict}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
