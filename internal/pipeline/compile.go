package pipeline

import (
	"fmt"
	"io"
	"slices"

	"github.com/sirupsen/logrus"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/compiler"
	"github.com/jacoelho/modelc/internal/diagnostics"
	"github.com/jacoelho/modelc/internal/inherit"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/normalize"
	"github.com/jacoelho/modelc/internal/resolver"
	"github.com/jacoelho/modelc/internal/source"
	"github.com/jacoelho/modelc/internal/xiter"
)

// Config configures one compile run.
type Config struct {
	Logger           logrus.FieldLogger
	Hooks            normalize.Hooks
	MaxDepth         int
	Unknown          model.UnknownPolicy
	Convert          bool
	WarningsAsErrors bool
}

// Endpoint is a compiled endpoint. Processor is nil when the endpoint takes
// no input.
type Endpoint struct {
	Processor compiler.Processor
	Input     *model.Node
	Name      string
	AllowAny  bool
}

// Compiled holds the frozen output of a compile run.
type Compiled struct {
	Models     map[string]*model.Node
	Processors map[string]compiler.Processor
	Endpoints  map[string]Endpoint
	Report     *xerrors.Report
	Order      []string
}

// Compile runs normalize, check, resolve, merge and compile over docs.
// Fatal diagnostics stop the run before any processor is built; the
// returned Compiled still carries the report.
func Compile(docs []*source.Document, cfg Config) (*Compiled, error) {
	log := cfg.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	out := &Compiled{Report: &xerrors.Report{}}

	set, report := source.Merge(docs...)
	out.Report.Merge(report)
	res := normalize.Normalize(set, normalize.Config{Hooks: cfg.Hooks, MaxDepth: cfg.MaxDepth})
	out.Report.Merge(res.Report)
	out.Report.Merge(diagnostics.Check(res))
	if err := finishCheck(out.Report, cfg, log); err != nil {
		return out, fmt.Errorf("compile models: %w", err)
	}

	r, report := resolver.New(res.Models, res.Order)
	out.Report.Merge(report)
	if report.HasErrors() {
		return out, fmt.Errorf("compile models: resolve: %w", report.Err())
	}
	inputs := make(map[string]*model.Node, len(res.Endpoints))
	hasInput := func(ep normalize.Endpoint) bool { return ep.Input != nil }
	for ep := range xiter.Filter(slices.Values(res.Endpoints), hasInput) {
		node, report := r.Inline(ep.Input, "")
		out.Report.Merge(report)
		if report.HasErrors() {
			return out, fmt.Errorf("compile models: resolve endpoint %s: %w", ep.Name, report.Err())
		}
		inputs[ep.Name] = node
	}
	report = inherit.Merge(r, r.Nodes())
	out.Report.Merge(report)
	if report.HasErrors() {
		return out, fmt.Errorf("compile models: merge: %w", report.Err())
	}

	c := compiler.New(compiler.Config{Unknown: cfg.Unknown, Convert: cfg.Convert})
	out.Order = r.Names()
	out.Models = make(map[string]*model.Node, len(out.Order))
	out.Processors = make(map[string]compiler.Processor, len(out.Order))
	for _, name := range out.Order {
		n, _ := r.Lookup(name)
		proc, err := c.Compile(n)
		if err != nil {
			return out, fmt.Errorf("compile models: model %s: %w", name, err)
		}
		out.Models[name] = n
		out.Processors[name] = proc
	}
	out.Endpoints = make(map[string]Endpoint, len(res.Endpoints))
	for _, ep := range res.Endpoints {
		compiled := Endpoint{Name: ep.Name, AllowAny: ep.AllowAny, Input: inputs[ep.Name]}
		if compiled.Input != nil {
			proc, err := c.Compile(compiled.Input)
			if err != nil {
				return out, fmt.Errorf("compile models: endpoint %s: %w", ep.Name, err)
			}
			compiled.Processor = proc
		}
		out.Endpoints[ep.Name] = compiled
	}
	log.WithFields(logrus.Fields{
		"models":     len(out.Models),
		"endpoints":  len(out.Endpoints),
		"processors": c.Built(),
	}).Debug("compiled models")
	return out, nil
}

// finishCheck logs the warnings gathered before resolution and returns the
// fatal ones as an error.
func finishCheck(report *xerrors.Report, cfg Config, log logrus.FieldLogger) error {
	for _, w := range report.Warnings {
		log.WithFields(logrus.Fields{
			"code":  w.Code,
			"model": w.Model,
			"path":  w.Path,
		}).Warn(w.Message)
	}
	if cfg.WarningsAsErrors {
		for _, w := range report.Warnings {
			report.Errorf(w.Code, w.Model, w.Path, "%s", w.Message)
		}
	}
	if report.HasErrors() {
		return report.Err()
	}
	return nil
}

// EndpointNames returns the compiled endpoint names in sorted order.
func (c *Compiled) EndpointNames() []string {
	if c == nil {
		return nil
	}
	return xiter.Collect(xiter.SortedKeys(c.Endpoints))
}
