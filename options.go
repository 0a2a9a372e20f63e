package modelc

import (
	"cmp"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/jacoelho/modelc/internal/source"
)

const defaultMaxDepth = source.DefaultMaxDepth

// NewOptions returns a default, valid options value.
func NewOptions() Options {
	return Options{}
}

// Validate validates option values.
func (o Options) Validate() error {
	_, err := o.withDefaults()
	return err
}

// WithConvert controls type conversion and convert hooks (default true).
func (o Options) WithConvert(value bool) Options {
	o.convert = boolOption{value: value, set: true}
	return o
}

// WithUnknownProperties sets the policy for objects that declare none
// (default UnknownError).
func (o Options) WithUnknownProperties(policy UnknownPolicy) Options {
	o.unknown = policy
	return o
}

// WithMaxDepth sets the model nesting limit (0 uses default).
func (o Options) WithMaxDepth(value int) Options {
	o.maxDepth = intOption{value: value, set: true}
	return o
}

// WithHooks sets the hook registry that documents reference by name.
func (o Options) WithHooks(hooks Hooks) Options {
	o.hooks = hooks
	return o
}

// WithLogger sets the logger that receives compile warnings.
func (o Options) WithLogger(logger logrus.FieldLogger) Options {
	o.logger = logger
	return o
}

// WithMetrics registers processing metrics with reg.
func (o Options) WithMetrics(reg prometheus.Registerer) Options {
	o.metrics = reg
	return o
}

// WithWarningsAsErrors makes every compile warning fatal.
func (o Options) WithWarningsAsErrors(value bool) Options {
	o.warningsAsErrors = value
	return o
}

func (o Options) withDefaults() (resolvedOptions, error) {
	depth := o.maxDepth.resolved()
	if depth < 0 {
		return resolvedOptions{}, fmt.Errorf("max depth must be >= 0")
	}
	if o.unknown > UnknownKeep {
		return resolvedOptions{}, fmt.Errorf("unknown property policy %d is not defined", o.unknown)
	}
	logger := o.logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return resolvedOptions{
		logger:           logger,
		metrics:          o.metrics,
		hooks:            o.hooks,
		maxDepth:         cmp.Or(depth, defaultMaxDepth),
		unknown:          cmp.Or(o.unknown, UnknownError),
		convert:          o.convert.resolved(true),
		warningsAsErrors: o.warningsAsErrors,
	}, nil
}
