package resolver

import (
	"errors"
	"fmt"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/model"
	"github.com/jacoelho/modelc/internal/resolveguard"
)

// ErrUnresolved reports a link or extends reference to an unknown model.
var ErrUnresolved = errors.New("unresolved link")

type variantKey struct {
	name string
	mode model.Requiredness
}

// Resolver owns the resolved copy of a model registry. Authored nodes are
// never modified: every named and inline node is copied into the resolver's
// arena with links replaced by the nodes they point to.
type Resolver struct {
	authored map[string]*model.Node
	arena    map[string]*model.Node
	variants map[variantKey]*model.Node
	filled   *CycleDetector[string]
	report   *xerrors.Report
	order    []string
	nodes    []*model.Node
}

// New resolves every model of the registry. Names are processed in order.
func New(models map[string]*model.Node, order []string) (*Resolver, *xerrors.Report) {
	r := &Resolver{
		authored: models,
		arena:    make(map[string]*model.Node, len(models)),
		variants: make(map[variantKey]*model.Node),
		filled:   NewCycleDetector[string](),
		report:   &xerrors.Report{},
		order:    order,
	}
	for _, name := range order {
		if n := models[name]; n != nil && n.Kind != model.KindLink {
			if shell := r.shell(n); shell != nil {
				r.arena[name] = shell
			}
		}
	}
	for _, name := range order {
		if n := models[name]; n != nil && n.Kind == model.KindLink {
			if err := r.alias(name); err != nil {
				r.reportLink(name, n.Path, err)
			}
		}
	}
	for _, name := range order {
		n := models[name]
		if _, ok := r.arena[name]; !ok || n.Kind == model.KindLink {
			continue
		}
		err := resolveguard.ResolveNamed[string](r.filled, name, func() error {
			r.fill(r.arena[name], n, name)
			return nil
		})
		if err != nil {
			r.report.Errorf(xerrors.ErrCircularLink, name, n.Path, "%v", err)
		}
	}
	return r, r.report
}

func (r *Resolver) reportLink(name, path string, err error) {
	var cycle *CycleError[string]
	if !errors.As(err, &cycle) {
		r.report.Errorf(xerrors.ErrUnresolvedLink, name, path, "%v", err)
		return
	}
	if len(cycle.Path) == 1 {
		r.report.Errorf(xerrors.ErrSelfLink, name, path, "model %s links to itself", name)
		return
	}
	r.report.Errorf(xerrors.ErrCircularLink, name, path, "%v", err)
}

// shell returns an empty arena node of the same kind and presence as n.
func (r *Resolver) shell(n *model.Node) *model.Node {
	var out *model.Node
	switch n.Kind {
	case model.KindValue:
		out = model.NewValue(&model.Value{})
	case model.KindObject:
		out = model.NewObject(&model.Object{Properties: model.NewProperties()})
	case model.KindArray:
		out = model.NewArray(&model.Array{})
	case model.KindAnyOf:
		out = model.NewAnyOf(&model.AnyOf{})
	default:
		return nil
	}
	out.Name = n.Name
	out.Path = n.Path
	out.Presence = n.Presence
	r.nodes = append(r.nodes, out)
	return out
}

// alias resolves a named link model. The chain is followed iteratively and
// each alias on it is bound to a copy of the variant its own link selects,
// named after the alias and sharing the variant's body.
func (r *Resolver) alias(name string) error {
	if _, ok := r.arena[name]; ok {
		return nil
	}
	chain := NewCycleDetector[string]()
	var links []string
	cur := name
	for {
		if _, ok := r.arena[cur]; ok {
			break
		}
		if err := chain.Enter(cur); err != nil {
			return err
		}
		n, ok := r.authored[cur]
		if !ok || n == nil {
			return fmt.Errorf("%w: model %s is not defined", ErrUnresolved, cur)
		}
		if n.Kind != model.KindLink {
			return fmt.Errorf("%w: model %s has no resolved node", ErrUnresolved, cur)
		}
		links = append(links, cur)
		cur = n.Link.Target
	}
	for i := len(links) - 1; i >= 0; i-- {
		link := r.authored[links[i]].Link
		v := r.variant(link.Target, link.Mode)
		if v == nil {
			return fmt.Errorf("%w: model %s has no resolved node", ErrUnresolved, link.Target)
		}
		named := *v
		named.Name = links[i]
		named.Path = r.authored[links[i]].Path
		r.arena[links[i]] = &named
	}
	return nil
}

// variant returns the node name resolves to under mode. Derived variants are
// created once per (name, mode) and share the body of the resolved node.
func (r *Resolver) variant(name string, mode model.Requiredness) *model.Node {
	base := r.arena[name]
	if base == nil || mode == model.AsAuthored {
		return base
	}
	key := variantKey{name: name, mode: mode}
	if v, ok := r.variants[key]; ok {
		return v
	}
	v := base.WithPresence(mode.Apply(base.Presence))
	r.variants[key] = v
	return v
}

// fill copies the body of src into dst, resolving every child.
func (r *Resolver) fill(dst, src *model.Node, owner string) {
	switch src.Kind {
	case model.KindValue:
		*dst.Value = *src.Value
		dst.Value.Validators = append([]model.NamedValidator(nil), src.Value.Validators...)
	case model.KindObject:
		obj := dst.Object
		obj.Behavior = src.Object.Behavior
		obj.Construct = src.Object.Construct
		obj.Convert = src.Object.Convert
		obj.Extends = src.Object.Extends
		obj.Unknown = src.Object.Unknown
		if src.Object.Properties != nil {
			for prop, child := range src.Object.Properties.All() {
				if c := r.child(child, owner); c != nil {
					obj.Properties.Set(prop, c)
				}
			}
		}
	case model.KindArray:
		arr := dst.Array
		arr.Convert = src.Array.Convert
		arr.Length = src.Array.Length
		arr.MinLength = src.Array.MinLength
		arr.MaxLength = src.Array.MaxLength
		arr.Item = r.child(src.Array.Item, owner)
	case model.KindAnyOf:
		union := dst.AnyOf
		for i, cand := range src.AnyOf.Candidates {
			if c := r.child(cand, owner); c != nil {
				union.Candidates = append(union.Candidates, c)
				label := ""
				if i < len(src.AnyOf.Labels) {
					label = src.AnyOf.Labels[i]
				}
				union.Labels = append(union.Labels, label)
			}
		}
	}
}

// child resolves a nested node: links become variants of their target and
// inline nodes are copied into the arena.
func (r *Resolver) child(n *model.Node, owner string) *model.Node {
	if n == nil {
		return nil
	}
	if n.Kind == model.KindLink {
		out, err := r.Resolve(n.Link.Target, n.Link.Mode)
		if err != nil {
			r.report.Errorf(xerrors.ErrUnresolvedLink, owner, n.Path, "%v", err)
			return nil
		}
		return out
	}
	out := r.shell(n)
	if out == nil {
		r.report.Errorf(xerrors.ErrInvalidSetting, owner, n.Path, "model node has kind %s", n.Kind)
		return nil
	}
	r.fill(out, n, owner)
	return out
}

// Resolve returns the resolved node for name under mode. Repeated calls for
// the same pair return the same node.
func (r *Resolver) Resolve(name string, mode model.Requiredness) (*model.Node, error) {
	if _, ok := r.arena[name]; !ok {
		return nil, fmt.Errorf("%w: model %s is not defined", ErrUnresolved, name)
	}
	return r.variant(name, mode), nil
}

// ResolveLink parses a link string and resolves it.
func (r *Resolver) ResolveLink(s string) (*model.Node, error) {
	link, err := model.ParseLink(s)
	if err != nil {
		return nil, err
	}
	return r.Resolve(link.Target, link.Mode)
}

// ExtendsResolve returns the terminal node an extends reference names.
func (r *Resolver) ExtendsResolve(ref string) (*model.Node, error) {
	n, err := r.Resolve(ref, model.AsAuthored)
	if err != nil {
		return nil, fmt.Errorf("extends %s: %w", ref, err)
	}
	if n.Kind == model.KindLink {
		return nil, fmt.Errorf("extends %s: reference does not terminate", ref)
	}
	return n, nil
}

// Inline copies an unnamed node into the arena.
func (r *Resolver) Inline(n *model.Node, owner string) (*model.Node, *xerrors.Report) {
	report := &xerrors.Report{}
	saved := r.report
	r.report = report
	defer func() { r.report = saved }()
	return r.child(n, owner), report
}

// Lookup returns the resolved node registered as name.
func (r *Resolver) Lookup(name string) (*model.Node, bool) {
	n, ok := r.arena[name]
	return n, ok
}

// Names returns the registered names in declaration order.
func (r *Resolver) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if _, ok := r.arena[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Nodes returns every arena node with a body of its own, in creation order.
func (r *Resolver) Nodes() []*model.Node {
	return r.nodes
}
