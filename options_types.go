package modelc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type intOption struct {
	value int
	set   bool
}

func (o intOption) resolved() int {
	if !o.set {
		return 0
	}
	return o.value
}

type boolOption struct {
	value bool
	set   bool
}

func (o boolOption) resolved(fallback bool) bool {
	if !o.set {
		return fallback
	}
	return o.value
}

// Options configures model loading and processor compilation.
type Options struct {
	logger           logrus.FieldLogger
	metrics          prometheus.Registerer
	hooks            Hooks
	maxDepth         intOption
	convert          boolOption
	unknown          UnknownPolicy
	warningsAsErrors bool
}

type resolvedOptions struct {
	logger           logrus.FieldLogger
	metrics          prometheus.Registerer
	hooks            Hooks
	maxDepth         int
	unknown          UnknownPolicy
	convert          bool
	warningsAsErrors bool
}
