package modelc

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Live holds the current schema and swaps it atomically on reload.
// Calls in flight keep the schema they started with.
type Live struct {
	current atomic.Pointer[Schema]
}

// NewLive returns a Live serving s. s may be nil.
func NewLive(s *Schema) *Live {
	l := &Live{}
	if s != nil {
		l.current.Store(s)
	}
	return l
}

// Schema returns the current schema, or nil before the first load.
func (l *Live) Schema() *Schema {
	return l.current.Load()
}

// Ready reports whether a schema has been loaded.
func (l *Live) Ready() bool {
	return l.current.Load() != nil
}

// Reload builds a new schema and swaps it in. On error the current schema
// stays in place.
func (l *Live) Reload(build func() (*Schema, error)) error {
	s, err := build()
	if err != nil {
		return fmt.Errorf("reload models: %w", err)
	}
	if s == nil {
		return fmt.Errorf("reload models: nil schema")
	}
	l.current.Store(s)
	return nil
}

// Process runs endpoint against the current schema.
func (l *Live) Process(ctx context.Context, endpoint string, input any) (any, error) {
	return l.current.Load().Process(ctx, endpoint, input)
}
