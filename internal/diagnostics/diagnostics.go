package diagnostics

import (
	"errors"
	"slices"
	"strings"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/graphcycle"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/normalize"
	"github.com/jacoelho/modelc/internal/valuetype"
	"github.com/jacoelho/modelc/internal/xiter"
)

// Check reports the problems of a normalized registry without changing it.
// Fatal problems are errors; inert settings are warnings.
func Check(res *normalize.Result) *xerrors.Report {
	report := &xerrors.Report{}
	if res == nil {
		return report
	}
	c := &checker{
		models: res.Models,
		order:  res.Order,
		report: report,
		seen:   make(map[*model.Node]bool),
	}
	if len(c.order) == 0 {
		c.order = xiter.Collect(xiter.SortedKeys(res.Models))
	}
	for _, name := range c.order {
		c.walk(c.models[name], name)
	}
	for _, ep := range res.Endpoints {
		if ep.Input != nil {
			c.walk(ep.Input, "")
		}
	}
	c.linkCycles()
	c.inheritCycles()
	return report
}

type checker struct {
	models map[string]*model.Node
	report *xerrors.Report
	seen   map[*model.Node]bool
	order  []string
}

type entry struct {
	node *model.Node
	// role is the position of node inside its parent.
	role role
}

type role uint8

const (
	roleTop role = iota
	roleProperty
	roleItem
	roleCandidate
)

// walk visits n and its inline children. Links are not followed; every
// named model is walked on its own.
func (c *checker) walk(n *model.Node, owner string) {
	stack := []entry{{node: n, role: roleTop}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.node == nil || c.seen[cur.node] {
			continue
		}
		c.seen[cur.node] = true
		c.presence(cur, owner)

		node := cur.node
		switch node.Kind {
		case model.KindLink:
			if _, ok := c.models[node.Link.Target]; !ok {
				c.report.Errorf(xerrors.ErrUnresolvedLink, owner, node.Path, "link %s names no model", node.Link)
			}
		case model.KindValue:
			c.value(node, owner)
		case model.KindObject:
			c.extends(node, node.Object.Extends, owner)
			for _, prop := range node.Object.Properties.All() {
				stack = append(stack, entry{node: prop, role: roleProperty})
			}
		case model.KindArray:
			if node.Array.Item != nil {
				stack = append(stack, entry{node: node.Array.Item, role: roleItem})
			}
		case model.KindAnyOf:
			if count := len(node.AnyOf.Candidates); count < 2 {
				c.report.Errorf(xerrors.ErrAnyOfArity, owner, node.Path, "anyOf needs at least two candidates, got %d", count)
			}
			for _, cand := range slices.Backward(node.AnyOf.Candidates) {
				stack = append(stack, entry{node: cand, role: roleCandidate})
			}
		}
	}
}

func (c *checker) presence(e entry, owner string) {
	n := e.node
	optional := n.Optional || n.Kind == model.KindLink && n.Link.Mode == model.ForceOptional
	switch {
	case e.role == roleItem && optional:
		c.report.Warnf(xerrors.WarnOptionalArrayItem, owner, n.Path, "optional modifier on an array item has no effect")
	case e.role == roleCandidate && optional:
		c.report.Warnf(xerrors.WarnCandidateOptional, owner, n.Path, "optional modifier on an anyOf candidate has no effect")
	}
	if n.HasDefault && !n.Optional {
		c.report.Warnf(xerrors.WarnDefaultWithoutOptional, owner, n.Path, "default on a required model is never used")
	}
}

func (c *checker) value(n *model.Node, owner string) {
	v := n.Value
	c.extends(n, v.Extends, owner)
	for _, pat := range v.Constraints.Regex {
		if _, err := valuetype.CompileRegex(pat.Source); err != nil {
			c.report.Errorf(xerrors.ErrInvalidRegex, owner, n.Path, "regex %q does not compile: %v", pat.Source, err)
		}
	}
	if class, ok := v.Constraints.CharClass.Get(); ok {
		if _, err := valuetype.CompileCharClass(class); err != nil {
			c.report.Errorf(xerrors.ErrInvalidCharClass, owner, n.Path, "charClass %q does not compile: %v", class, err)
		}
	}
}

// extends checks that ref names a model of the same kind as n.
func (c *checker) extends(n *model.Node, ref, owner string) {
	if ref == "" {
		return
	}
	target, err := c.terminal(ref)
	if err != nil {
		var missing graphcycle.MissingError[string]
		if errors.As(err, &missing) {
			c.report.Errorf(xerrors.ErrUnresolvedExtends, owner, n.Path, "extends %s: model %s does not exist", ref, missing.Key)
		}
		return
	}
	if target.Kind != n.Kind {
		c.report.Errorf(xerrors.ErrExtendsKind, owner, n.Path, "%s model cannot extend %s, which is a %s model", n.Kind, ref, target.Kind)
	}
}

// terminal follows link aliases from name to a concrete node.
func (c *checker) terminal(name string) (*model.Node, error) {
	var path []string
	for {
		if slices.Contains(path, name) {
			return nil, graphcycle.CycleError[string]{Key: name, Path: append(path, name)}
		}
		path = append(path, name)
		n, ok := c.models[name]
		if !ok {
			return nil, graphcycle.MissingError[string]{From: path[0], Key: name}
		}
		if n.Kind != model.KindLink {
			return n, nil
		}
		name = n.Link.Target
	}
}

// linkEdges returns the models name reaches without consuming input: the
// target of a link and the links among anyOf candidates, nested unions
// included.
func (c *checker) linkEdges(name string) []string {
	var out []string
	stack := []*model.Node{c.models[name]}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch n.Kind {
		case model.KindLink:
			out = append(out, n.Link.Target)
		case model.KindAnyOf:
			for _, cand := range slices.Backward(n.AnyOf.Candidates) {
				if cand != nil {
					stack = append(stack, cand)
				}
			}
		}
	}
	return out
}

func (c *checker) linkCycles() {
	c.cycles(func(name string) ([]string, error) {
		return c.linkEdges(name), nil
	}, func(path []string) {
		if len(path) == 2 {
			c.report.Errorf(xerrors.ErrSelfLink, path[0], c.models[path[0]].Path, "model %s links to itself", path[0])
			return
		}
		c.report.Errorf(xerrors.ErrCircularLink, path[0], c.models[path[0]].Path, "circular link: %s", strings.Join(path, " -> "))
	})
}

// inheritCycles reports extends chains that return to their origin. Alias
// links are edges too, so a chain through an alias is caught; cycles made of
// aliases alone are link cycles and are skipped here.
func (c *checker) inheritCycles() {
	extendsOf := func(name string) string {
		switch n := c.models[name]; n.Kind {
		case model.KindObject:
			return n.Object.Extends
		case model.KindValue:
			return n.Value.Extends
		}
		return ""
	}
	c.cycles(func(name string) ([]string, error) {
		n := c.models[name]
		if n.Kind == model.KindLink {
			return []string{n.Link.Target}, nil
		}
		if ref := extendsOf(name); ref != "" {
			return []string{ref}, nil
		}
		return nil, nil
	}, func(path []string) {
		viaExtends := false
		for _, name := range path[:len(path)-1] {
			if extendsOf(name) != "" {
				viaExtends = true
			}
		}
		if !viaExtends {
			return
		}
		if len(path) == 2 {
			c.report.Errorf(xerrors.ErrSelfInheritance, path[0], c.models[path[0]].Path, "model %s extends itself", path[0])
			return
		}
		c.report.Errorf(xerrors.ErrCircularInheritance, path[0], c.models[path[0]].Path, "circular inheritance: %s", strings.Join(path, " -> "))
	})
}

// cycles runs cycle detection from every model and reports each distinct
// cycle once, rotated to start at its earliest declared member.
func (c *checker) cycles(next func(string) ([]string, error), report func([]string)) {
	rank := make(map[string]int, len(c.order))
	for i, name := range c.order {
		rank[name] = i
	}
	reported := make(map[string]bool)
	for _, name := range c.order {
		err := graphcycle.Detect(graphcycle.Config[string]{
			Starts: []string{name},
			Next:   next,
			Exists: func(k string) bool {
				_, ok := c.models[k]
				return ok
			},
			Missing: graphcycle.MissingPolicyIgnore,
		})
		var cycle graphcycle.CycleError[string]
		if !errors.As(err, &cycle) {
			continue
		}
		path := canonical(cycle.Path, rank)
		key := strings.Join(path, "\x00")
		if reported[key] {
			continue
		}
		reported[key] = true
		report(path)
	}
}

// canonical rotates a closed cycle path so it starts at its lowest ranked
// member.
func canonical(path []string, rank map[string]int) []string {
	ring := path[:len(path)-1]
	start := 0
	for i, name := range ring {
		if rank[name] < rank[ring[start]] {
			start = i
		}
	}
	out := make([]string, 0, len(path))
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return append(out, out[0])
}
