package compiler

import (
	"context"
	"fmt"
	"strings"

	xerrors "github.com/jacoelho/modelc/errors"
	"github.com/jacoelho/modelc/internal/model"
)

type arrayProcessor struct {
	item      Processor
	convert   model.ConvertFunc
	length    model.Opt[int]
	minLength model.Opt[int]
	maxLength model.Opt[int]
}

func (c *Compiler) array(n *model.Node) (Processor, error) {
	arr := n.Array
	if arr.Item == nil {
		return nil, fmt.Errorf("compile %s: array has no item model", n.Describe())
	}
	item, err := c.Compile(arr.Item)
	if err != nil {
		return nil, fmt.Errorf("array item: %w", err)
	}
	p := &arrayProcessor{
		item:      item,
		length:    arr.Length,
		minLength: arr.MinLength,
		maxLength: arr.MaxLength,
	}
	if c.cfg.Convert {
		p.convert = arr.Convert
	}
	return p.run, nil
}

func (p *arrayProcessor) run(ctx context.Context, in any, path string) (any, error) {
	list, ok := in.([]any)
	if !ok {
		v := xerrors.NewValidationf(xerrors.ErrArrayType, path, "value must be an array")
		v.Actual = kindOf(in)
		return nil, xerrors.ValidationList{v}
	}
	var errs xerrors.ValidationList
	if want, set := p.length.Get(); set && len(list) != want {
		errs = append(errs, xerrors.NewValidationf(xerrors.ErrArrayLength, path, "array must have %d elements, got %d", want, len(list)))
	}
	if minLen, set := p.minLength.Get(); set && len(list) < minLen {
		errs = append(errs, xerrors.NewValidationf(xerrors.ErrArrayMinLength, path, "array must have at least %d elements, got %d", minLen, len(list)))
	}
	if maxLen, set := p.maxLength.Get(); set && len(list) > maxLen {
		errs = append(errs, xerrors.NewValidationf(xerrors.ErrArrayMaxLength, path, "array must have at most %d elements, got %d", maxLen, len(list)))
	}

	out := make([]any, len(list))
	for i, elem := range list {
		v, err := p.item(ctx, elem, index(path, i))
		items, err := violations(err)
		if err != nil {
			return nil, err
		}
		errs = append(errs, items...)
		out[i] = v
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if p.convert == nil {
		return out, nil
	}
	converted, err := p.convert(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", where(path), err)
	}
	return converted, nil
}

type anyOfProcessor struct {
	candidates []Processor
	labels     []string
}

func (c *Compiler) anyOf(n *model.Node) (Processor, error) {
	union := n.AnyOf
	if len(union.Candidates) < 2 {
		return nil, fmt.Errorf("compile %s: anyOf needs at least two candidates, got %d", n.Describe(), len(union.Candidates))
	}
	p := &anyOfProcessor{}
	for i, cand := range union.Candidates {
		proc, err := c.Compile(cand)
		if err != nil {
			return nil, fmt.Errorf("anyOf candidate %d: %w", i, err)
		}
		p.candidates = append(p.candidates, proc)
		label := cand.Name
		if i < len(union.Labels) && union.Labels[i] != "" {
			label = union.Labels[i]
		}
		if label == "" {
			label = candidateLabel(cand)
		}
		p.labels = append(p.labels, label)
	}
	return p.run, nil
}

// run tries candidates in order and keeps the first that accepts the value.
// When none does, a single violation carries the first message of the last
// candidate tried.
func (p *anyOfProcessor) run(ctx context.Context, in any, path string) (any, error) {
	var last xerrors.ValidationList
	for _, cand := range p.candidates {
		out, err := cand(ctx, in, path)
		if err == nil {
			return out, nil
		}
		list, hookErr := violations(err)
		if hookErr != nil {
			return nil, hookErr
		}
		last = list
	}
	msg := fmt.Sprintf("value does not match any of %s", strings.Join(p.labels, ", "))
	if len(last) > 0 {
		msg += ": " + last[0].Message
	}
	v := xerrors.NewValidation(xerrors.ErrAnyOfNoMatch, msg, path)
	v.Expected = p.labels
	v.Actual = kindOf(in)
	return nil, xerrors.ValidationList{v}
}

func candidateLabel(n *model.Node) string {
	if n.Kind == model.KindValue && len(n.Value.Constraints.Types) > 0 {
		return strings.Join(n.Value.Constraints.Types, "|")
	}
	return n.Kind.String()
}
