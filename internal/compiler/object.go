package compiler

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/model"
)

type property struct {
	node  *model.Node
	proc  Processor
	name  string
	async bool
}

type objectProcessor struct {
	behavior  *model.Behavior
	construct model.ConstructFunc
	convert   model.ConvertFunc
	declared  map[string]struct{}
	props     []property
	unknown   model.UnknownPolicy
}

func (c *Compiler) object(n *model.Node) (Processor, error) {
	obj := n.Object
	if obj.Extends != "" {
		return nil, fmt.Errorf("compile %s: extends %s was not merged", n.Describe(), obj.Extends)
	}
	p := &objectProcessor{
		behavior:  obj.Behavior,
		construct: obj.Construct,
		declared:  make(map[string]struct{}, obj.Properties.Len()),
		unknown:   obj.Unknown,
	}
	if p.unknown == model.UnknownInherit {
		p.unknown = c.cfg.Unknown
	}
	if c.cfg.Convert {
		p.convert = obj.Convert
	}
	for name, child := range obj.Properties.All() {
		proc, err := c.Compile(child)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		p.declared[name] = struct{}{}
		p.props = append(p.props, property{
			node:  child,
			proc:  proc,
			name:  name,
			async: c.needsAsync(child),
		})
	}
	return p.run, nil
}

type slot struct {
	out     any
	errs    xerrors.ValidationList
	present bool
}

func (p *objectProcessor) run(ctx context.Context, in any, path string) (any, error) {
	fields, ok := in.(map[string]any)
	if !ok {
		inst, isInstance := in.(*model.Instance)
		if !isInstance {
			v := xerrors.NewValidationf(xerrors.ErrObjectType, path, "value must be an object")
			v.Actual = kindOf(in)
			return nil, xerrors.ValidationList{v}
		}
		fields = inst.Fields
	}

	slots := make([]slot, len(p.props))
	var pending []int
	for i, prop := range p.props {
		raw, present := fields[prop.name]
		if !present || raw == nil && prop.node.Optional {
			p.absent(&slots[i], prop, path)
			continue
		}
		if prop.async {
			pending = append(pending, i)
			continue
		}
		out, err := prop.proc(ctx, raw, join(path, prop.name))
		list, err := violations(err)
		if err != nil {
			return nil, err
		}
		slots[i] = slot{out: out, errs: list, present: true}
	}
	if len(pending) > 0 {
		if err := p.fanOut(ctx, fields, pending, slots, path); err != nil {
			return nil, err
		}
	}

	var errs xerrors.ValidationList
	out := make(map[string]any, len(p.props))
	for i, prop := range p.props {
		errs = append(errs, slots[i].errs...)
		if slots[i].present {
			out[prop.name] = slots[i].out
		}
	}
	if p.unknown != model.UnknownStrip {
		errs = append(errs, p.extra(fields, out, path)...)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return p.finish(ctx, out, path)
}

func (p *objectProcessor) absent(s *slot, prop property, path string) {
	switch {
	case prop.node.Optional && prop.node.HasDefault:
		*s = slot{out: prop.node.DefaultValue(), present: true}
	case prop.node.Optional:
	default:
		v := xerrors.NewValidationf(xerrors.ErrObjectMissingProperty, join(path, prop.name), "property %s is required", prop.name)
		s.errs = xerrors.ValidationList{v}
	}
}

// fanOut processes every pending sibling concurrently. All siblings run to
// completion; the first hook failure is returned after they join.
func (p *objectProcessor) fanOut(ctx context.Context, fields map[string]any, pending []int, slots []slot, path string) error {
	var g errgroup.Group
	for _, i := range pending {
		prop := p.props[i]
		raw := fields[prop.name]
		g.Go(func() error {
			out, err := prop.proc(ctx, raw, join(path, prop.name))
			list, err := violations(err)
			if err != nil {
				return err
			}
			slots[i] = slot{out: out, errs: list, present: true}
			return nil
		})
	}
	return g.Wait()
}

// extra applies the unknown property policy to undeclared input keys.
func (p *objectProcessor) extra(fields, out map[string]any, path string) xerrors.ValidationList {
	var keys []string
	for key := range fields {
		if _, ok := p.declared[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	var errs xerrors.ValidationList
	for _, key := range keys {
		if p.unknown == model.UnknownKeep {
			out[key] = model.CloneValue(fields[key])
			continue
		}
		errs = append(errs, xerrors.NewValidationf(xerrors.ErrObjectUnknownProperty, join(path, key), "property %s is not allowed", key))
	}
	return errs
}

func (p *objectProcessor) finish(ctx context.Context, fields map[string]any, path string) (any, error) {
	inst := model.NewInstance(fields, p.behavior)
	if p.construct != nil {
		if err := p.construct(ctx, inst); err != nil {
			return nil, fmt.Errorf("construct %s: %w", where(path), err)
		}
	}
	var out any = inst.Fields
	if p.behavior != nil {
		out = inst
	}
	if p.convert != nil {
		converted, err := p.convert(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", where(path), err)
		}
		out = converted
	}
	return out, nil
}
