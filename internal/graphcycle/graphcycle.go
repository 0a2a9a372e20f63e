package graphcycle

import (
	"fmt"
	"strings"
)

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// MissingPolicy controls behavior when a referenced node is missing.
type MissingPolicy uint8

const (
	MissingPolicyIgnore MissingPolicy = iota
	MissingPolicyError
)

// CycleError reports a cycle at Key.
type CycleError[K comparable] struct {
	Key K
	// Path lists the cycle from Key back to Key.
	Path []K
}

// Error returns the error string.
func (e CycleError[K]) Error() string {
	if len(e.Path) == 0 {
		return "cycle detected"
	}
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = fmt.Sprint(k)
	}
	return "cycle detected: " + strings.Join(parts, " -> ")
}

// MissingError reports a missing referenced node.
type MissingError[K comparable] struct {
	From K
	Key  K
}

// Error returns the error string.
func (e MissingError[K]) Error() string {
	return fmt.Sprintf("missing node %v referenced from %v", e.Key, e.From)
}

// Config configures generic cycle detection traversal.
type Config[K comparable] struct {
	Exists  func(K) bool
	Next    func(K) ([]K, error)
	Starts  []K
	Missing MissingPolicy
}

type frame[K comparable] struct {
	key       K
	neighbors []K
	next      int
}

// Detect walks directed edges from Starts and reports first cycle or traversal error.
// The walk keeps an explicit stack, so deep graphs do not grow the call stack.
func Detect[K comparable](cfg Config[K]) error {
	if cfg.Next == nil {
		return fmt.Errorf("cycle detect: next function is nil")
	}
	states := make(map[K]visitState, len(cfg.Starts))
	exists := func(k K) bool {
		return cfg.Exists == nil || cfg.Exists(k)
	}

	var zero K
	var stack []frame[K]
	enter := func(key, from K) error {
		switch states[key] {
		case stateVisiting:
			return CycleError[K]{Key: key, Path: cyclePath(stack, key)}
		case stateDone:
			return nil
		}
		if !exists(key) {
			if cfg.Missing == MissingPolicyIgnore {
				return nil
			}
			return MissingError[K]{From: from, Key: key}
		}
		neighbors, err := cfg.Next(key)
		if err != nil {
			return err
		}
		states[key] = stateVisiting
		stack = append(stack, frame[K]{key: key, neighbors: neighbors})
		return nil
	}

	for _, start := range cfg.Starts {
		if err := enter(start, zero); err != nil {
			return err
		}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.neighbors) {
				states[top.key] = stateDone
				stack = stack[:len(stack)-1]
				continue
			}
			next := top.neighbors[top.next]
			top.next++
			if err := enter(next, top.key); err != nil {
				return err
			}
		}
	}
	return nil
}

func cyclePath[K comparable](stack []frame[K], key K) []K {
	for i, f := range stack {
		if f.key != key {
			continue
		}
		path := make([]K, 0, len(stack)-i+1)
		for _, g := range stack[i:] {
			path = append(path, g.key)
		}
		return append(path, key)
	}
	return []K{key}
}
