package compiler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/resolveguard"
)

// Processor validates and converts one input value. Violations are returned
// as an errors.ValidationList; any other error comes from a hook.
type Processor func(ctx context.Context, input any, path string) (any, error)

// Config controls processor synthesis.
type Config struct {
	// Unknown applies to objects that do not set their own policy.
	Unknown model.UnknownPolicy
	// Convert enables type conversion and convert hooks.
	Convert bool
}

// cell holds the processor of one body. Recursive models call through the
// cell, so the processor can be referenced before it is built.
type cell struct {
	fn Processor
}

func (c *cell) run(ctx context.Context, input any, path string) (any, error) {
	return c.fn(ctx, input, path)
}

// Compiler builds one processor per model body. Compiling a body twice
// returns the processor built the first time.
type Compiler struct {
	guard *resolveguard.Pointer[any]
	cells map[any]*cell
	async map[any]bool
	cfg   Config
	built int
}

// New returns a compiler.
func New(cfg Config) *Compiler {
	if cfg.Unknown == model.UnknownInherit {
		cfg.Unknown = model.UnknownError
	}
	return &Compiler{
		cfg:   cfg,
		guard: resolveguard.NewPointer[any](),
		cells: make(map[any]*cell),
		async: make(map[any]bool),
	}
}

// Built returns how many processors were synthesized.
func (c *Compiler) Built() int {
	return c.built
}

// Compile returns the processor for n.
func (c *Compiler) Compile(n *model.Node) (Processor, error) {
	if err := n.Check(); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if n.Kind == model.KindLink {
		return nil, fmt.Errorf("compile %s: unresolved link %s", n.Describe(), n.Link)
	}
	body := n.Body()
	cl, ok := c.cells[body]
	if !ok {
		cl = &cell{}
		c.cells[body] = cl
	}
	err := c.guard.Resolve(body, nil, func() error {
		fn, err := c.build(n)
		if err != nil {
			return err
		}
		cl.fn = fn
		c.built++
		return nil
	})
	if err != nil {
		delete(c.cells, body)
		return nil, err
	}
	if cl.fn != nil {
		return cl.fn, nil
	}
	return cl.run, nil
}

func (c *Compiler) build(n *model.Node) (Processor, error) {
	switch n.Kind {
	case model.KindValue:
		return c.value(n)
	case model.KindObject:
		return c.object(n)
	case model.KindArray:
		return c.array(n)
	case model.KindAnyOf:
		return c.anyOf(n)
	default:
		return nil, fmt.Errorf("compile %s: unsupported kind %s", n.Describe(), n.Kind)
	}
}

// needsAsync reports whether processing n can run a construct hook. The
// walk keeps its own stack and visits each body once.
func (c *Compiler) needsAsync(n *model.Node) bool {
	if v, ok := c.async[n.Body()]; ok {
		return v
	}
	seen := make(map[any]bool)
	stack := []*model.Node{n}
	found := false
	for len(stack) > 0 && !found {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		body := cur.Body()
		if seen[body] {
			continue
		}
		seen[body] = true
		if v, ok := c.async[body]; ok {
			found = v
			continue
		}
		switch cur.Kind {
		case model.KindObject:
			if cur.Object.Construct != nil {
				found = true
			}
			for _, prop := range cur.Object.Properties.All() {
				stack = append(stack, prop)
			}
		case model.KindArray:
			if cur.Array.Item != nil {
				stack = append(stack, cur.Array.Item)
			}
		case model.KindAnyOf:
			stack = append(stack, cur.AnyOf.Candidates...)
		}
	}
	c.async[n.Body()] = found
	return found
}

// join appends a JSON pointer token to path.
func join(path, token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return path + "/" + token
}

func index(path string, i int) string {
	return path + "/" + strconv.Itoa(i)
}

func where(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// violations splits a processor error into violations and hook failures.
func violations(err error) (xerrors.ValidationList, error) {
	if err == nil {
		return nil, nil
	}
	if list, ok := xerrors.AsValidations(err); ok {
		return list, nil
	}
	return nil, err
}
