package modelc

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/jacoelho/modelc/internal/pipeline"
	"github.com/jacoelho/modelc/internal/source"
)

type modelSetEntry struct {
	fsys     fs.FS
	value    any
	location string
	data     []byte
	inMemory bool
}

// ModelSet owns model documents and compiles them into one schema.
type ModelSet struct {
	entries []modelSetEntry
	opts    Options
}

// NewModelSet creates an empty model set.
func NewModelSet(opts ...Options) *ModelSet {
	o := NewOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	return &ModelSet{opts: o}
}

// WithOptions replaces model-set options.
func (s *ModelSet) WithOptions(opts Options) *ModelSet {
	if s == nil {
		return nil
	}
	s.opts = opts
	return s
}

// AddFS adds one YAML or JSON document read from fsys.
func (s *ModelSet) AddFS(fsys fs.FS, location string) error {
	if s == nil {
		return fmt.Errorf("model set: nil set")
	}
	if fsys == nil {
		return fmt.Errorf("model set: nil fs")
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return fmt.Errorf("model set: empty location")
	}
	s.entries = append(s.entries, modelSetEntry{fsys: fsys, location: location})
	return nil
}

// AddBytes adds one YAML or JSON document. origin names it in diagnostics.
func (s *ModelSet) AddBytes(origin string, data []byte) error {
	if s == nil {
		return fmt.Errorf("model set: nil set")
	}
	s.entries = append(s.entries, modelSetEntry{location: origin, data: data})
	return nil
}

// AddValue adds an in-memory document: a map with "models" and "endpoints"
// sections whose entries may carry hook functions inline.
func (s *ModelSet) AddValue(origin string, doc any) error {
	if s == nil {
		return fmt.Errorf("model set: nil set")
	}
	if doc == nil {
		return fmt.Errorf("model set: nil document")
	}
	s.entries = append(s.entries, modelSetEntry{location: origin, value: doc, inMemory: true})
	return nil
}

// Compile compiles every added document with the set options.
func (s *ModelSet) Compile() (*Schema, error) {
	if s == nil {
		return nil, fmt.Errorf("compile model set: nil set")
	}
	if len(s.entries) == 0 {
		return nil, fmt.Errorf("compile model set: no documents added")
	}
	opts, err := s.opts.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("compile model set: %w", err)
	}
	docs := make([]*source.Document, 0, len(s.entries))
	for _, entry := range s.entries {
		doc, err := entry.decode(opts.maxDepth)
		if err != nil {
			return nil, fmt.Errorf("compile model set: %w", err)
		}
		docs = append(docs, doc)
	}
	compiled, err := pipeline.Compile(docs, pipeline.Config{
		Logger:           opts.logger,
		Hooks:            opts.hooks,
		MaxDepth:         opts.maxDepth,
		Unknown:          opts.unknown,
		Convert:          opts.convert,
		WarningsAsErrors: opts.warningsAsErrors,
	})
	if err != nil {
		return nil, fmt.Errorf("compile model set: %w", err)
	}
	metrics, err := newProcessMetrics(opts.metrics)
	if err != nil {
		return nil, fmt.Errorf("compile model set: metrics: %w", err)
	}
	return &Schema{compiled: compiled, metrics: metrics}, nil
}

func (e modelSetEntry) decode(maxDepth int) (*source.Document, error) {
	switch {
	case e.inMemory:
		return source.FromValue(e.location, e.value, maxDepth)
	case e.fsys != nil:
		data, err := fs.ReadFile(e.fsys, e.location)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.location, err)
		}
		return source.Decode(e.location, data, maxDepth)
	default:
		return source.Decode(e.location, e.data, maxDepth)
	}
}
