package inherit

import (
	"fmt"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/resolver"
)

// Lookup resolves an extends reference to its terminal node.
type Lookup interface {
	ExtendsResolve(ref string) (*model.Node, error)
}

var _ Lookup = (*resolver.Resolver)(nil)

// Merger folds ancestor chains into their descendants. Each body is merged
// at most once.
type Merger struct {
	lookup  Lookup
	report  *xerrors.Report
	objects map[*model.Object]bool
	values  map[*model.Value]bool
}

// NewMerger returns a merger resolving references through lookup.
func NewMerger(lookup Lookup) *Merger {
	return &Merger{
		lookup:  lookup,
		report:  &xerrors.Report{},
		objects: make(map[*model.Object]bool),
		values:  make(map[*model.Value]bool),
	}
}

// Merge merges every node that extends another model.
func Merge(lookup Lookup, nodes []*model.Node) *xerrors.Report {
	m := NewMerger(lookup)
	for _, n := range nodes {
		m.Node(n)
	}
	return m.report
}

// Report returns the diagnostics gathered so far.
func (m *Merger) Report() *xerrors.Report {
	return m.report
}

// Node merges n with its ancestors.
func (m *Merger) Node(n *model.Node) {
	switch n.Kind {
	case model.KindObject:
		m.object(n)
	case model.KindValue:
		m.value(n)
	}
}

// object merges the chain starting at n from the farthest ancestor down, so
// each ancestor is complete before its child absorbs it.
func (m *Merger) object(n *model.Node) {
	if m.objects[n.Object] {
		return
	}
	chain := []*model.Node{n}
	seen := map[*model.Object]bool{n.Object: true}
	for cur := n; cur.Object.Extends != "" && !m.objects[cur.Object]; {
		parent, err := m.parent(cur, cur.Object.Extends, model.KindObject)
		if err != nil {
			m.fail(n, cur, err)
			return
		}
		if seen[parent.Object] {
			m.report.Errorf(xerrors.ErrCircularInheritance, n.Describe(), n.Path,
				"model %s inherits from itself through %s", n.Describe(), cur.Object.Extends)
			return
		}
		seen[parent.Object] = true
		chain = append(chain, parent)
		cur = parent
	}
	for i := len(chain) - 2; i >= 0; i-- {
		mergeObject(chain[i].Object, chain[i+1].Object)
		m.objects[chain[i].Object] = true
	}
	m.objects[chain[len(chain)-1].Object] = true
}

// mergeObject folds parent into child. Child properties win; inherited
// properties follow the child's own in ancestor order.
func mergeObject(child, parent *model.Object) {
	if parent.Properties != nil {
		for name, prop := range parent.Properties.All() {
			if _, ok := child.Properties.Get(name); !ok {
				child.Properties.Set(name, prop)
			}
		}
	}
	child.Behavior = child.Behavior.Over(parent.Behavior)
	child.Construct = model.ChainConstruct(parent.Construct, child.Construct)
	child.Convert = model.ChainConvert(parent.Convert, child.Convert)
	if child.Unknown == model.UnknownInherit {
		child.Unknown = parent.Unknown
	}
	child.Extends = ""
}

// value overlays the ancestors of n nearest first: a setting is taken from
// the closest model in the chain that defines it.
func (m *Merger) value(n *model.Node) {
	if m.values[n.Value] {
		return
	}
	chain := []*model.Node{n}
	seen := map[*model.Value]bool{n.Value: true}
	for cur := n; cur.Value.Extends != "" && !m.values[cur.Value]; {
		parent, err := m.parent(cur, cur.Value.Extends, model.KindValue)
		if err != nil {
			m.fail(n, cur, err)
			return
		}
		if seen[parent.Value] {
			m.report.Errorf(xerrors.ErrCircularInheritance, n.Describe(), n.Path,
				"model %s inherits from itself through %s", n.Describe(), cur.Value.Extends)
			return
		}
		seen[parent.Value] = true
		chain = append(chain, parent)
		cur = parent
	}
	for i := len(chain) - 2; i >= 0; i-- {
		chain[i].Value.Overlay(chain[i+1].Value)
		chain[i].Value.Extends = ""
		m.values[chain[i].Value] = true
	}
	m.values[chain[len(chain)-1].Value] = true
}

type kindError struct {
	ref  string
	want model.Kind
	got  model.Kind
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%s models cannot extend %s, which is a %s model", e.want, e.ref, e.got)
}

func (m *Merger) parent(cur *model.Node, ref string, want model.Kind) (*model.Node, error) {
	parent, err := m.lookup.ExtendsResolve(ref)
	if err != nil {
		return nil, err
	}
	if parent.Kind != want {
		return nil, &kindError{ref: ref, want: want, got: parent.Kind}
	}
	return parent, nil
}

func (m *Merger) fail(n, at *model.Node, err error) {
	if _, ok := err.(*kindError); ok {
		m.report.Errorf(xerrors.ErrExtendsKind, n.Describe(), at.Path, "%v", err)
		return
	}
	m.report.Errorf(xerrors.ErrUnresolvedExtends, n.Describe(), at.Path, "%v", err)
}
