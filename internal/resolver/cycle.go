package resolver

import (
	"fmt"
	"strings"
)

// CycleDetector tracks the chain of names being resolved and the names that
// completed.
type CycleDetector[K comparable] struct {
	visited   map[K]bool
	resolving map[K]bool
	path      []K
}

// NewCycleDetector creates a new cycle detector.
func NewCycleDetector[K comparable]() *CycleDetector[K] {
	return &CycleDetector[K]{
		visited:   make(map[K]bool),
		resolving: make(map[K]bool),
	}
}

// CycleError reports a chain that came back to Key.
type CycleError[K comparable] struct {
	Key  K
	Path []K
}

// Error lists the chain.
func (e *CycleError[K]) Error() string {
	parts := make([]string, 0, len(e.Path)+1)
	for _, k := range e.Path {
		parts = append(parts, fmt.Sprint(k))
	}
	parts = append(parts, fmt.Sprint(e.Key))
	return "circular reference: " + strings.Join(parts, " -> ")
}

// Enter marks key as resolving and fails when key is already on the chain.
func (c *CycleDetector[K]) Enter(key K) error {
	if c.resolving[key] {
		start := 0
		for i, k := range c.path {
			if k == key {
				start = i
				break
			}
		}
		return &CycleError[K]{Key: key, Path: append([]K(nil), c.path[start:]...)}
	}
	c.resolving[key] = true
	c.path = append(c.path, key)
	return nil
}

// Leave marks key as visited and removes it from the chain.
func (c *CycleDetector[K]) Leave(key K) {
	delete(c.resolving, key)
	c.visited[key] = true
	for i := len(c.path) - 1; i >= 0; i-- {
		if c.path[i] == key {
			c.path = append(c.path[:i], c.path[i+1:]...)
			break
		}
	}
}

// IsVisited returns true if key was already processed.
func (c *CycleDetector[K]) IsVisited(key K) bool {
	return c.visited[key]
}

// IsResolving returns true if key is on the current chain.
func (c *CycleDetector[K]) IsResolving(key K) bool {
	return c.resolving[key]
}

// WithScope runs fn between Enter and Leave.
func (c *CycleDetector[K]) WithScope(key K, fn func() error) error {
	if err := c.Enter(key); err != nil {
		return err
	}
	defer c.Leave(key)
	return fn()
}
