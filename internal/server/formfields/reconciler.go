package formfields

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/server/forms"
	"github.com/google/uuid"
)

type Reconciler struct {
	newID func() string
}

type Option func(*Reconciler)

// WithIDGenerator replaces the generator of ids for new fields.
func WithIDGenerator(f func() string) Option {
	return func(r *Reconciler) {
		r.newID = f
	}
}

func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{newID: uuid.NewString}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile applies a full submission to existing. Fields of existing whose
// id has no group are removed; every group yields one field.
func (r *Reconciler) Reconcile(ctx context.Context, existing fields.Map, groups []forms.Group, vb ValueBuilder) (fields.Map, error) {
	if vb == nil {
		return nil, fmt.Errorf("reconcile: nil value builder")
	}
	return r.reconcile(ctx, existing, groups, vb)
}

// ReconcileTemplate is Reconcile for integration templates: values are
// never read and every resulting field has a nil value.
func (r *Reconciler) ReconcileTemplate(ctx context.Context, existing fields.Map, groups []forms.Group) (fields.Map, error) {
	return r.reconcile(ctx, existing, groups, nil)
}

func (r *Reconciler) reconcile(ctx context.Context, existing fields.Map, groups []forms.Group, vb ValueBuilder) (fields.Map, error) {
	submitted := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		submitted[g.ID] = struct{}{}
	}

	result := existing.Clone()
	for id := range result {
		if _, ok := submitted[id]; !ok {
			delete(result, id)
		}
	}

	for _, g := range groups {
		id, f, err := r.reconcileGroup(ctx, existing, g, vb)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", g.ID, err)
		}
		result[id] = f
	}

	return result, nil
}

func (r *Reconciler) reconcileGroup(ctx context.Context, existing fields.Map, g forms.Group, vb ValueBuilder) (string, fields.Field, error) {
	old, found := existing[g.ID]

	var f fields.Field
	id := g.ID

	if found {
		f.Name = old.Name
		f.Type = old.Type
	} else {
		label := g.Get(forms.SuffixLabel)
		if label == nil {
			return "", f, fmt.Errorf("%w: missing label", common.ErrorMalformedInput)
		}
		f.Name = SanitizeLabel(label.Text())
		if f.Name == "" {
			return "", f, fmt.Errorf("%w: empty label", common.ErrorMalformedInput)
		}

		typ := g.Get(forms.SuffixType)
		if typ == nil {
			return "", f, fmt.Errorf("%w: missing type", common.ErrorMalformedInput)
		}
		t, err := fields.ParseType(typ.Text())
		if err != nil {
			return "", f, fmt.Errorf("%w: %v", common.ErrorMalformedInput, err)
		}
		f.Type = t
		id = r.newID()
	}

	order, err := parseOrder(g.Get(forms.SuffixOrder))
	if err != nil {
		return "", f, err
	}
	f.Order = order

	if vb == nil {
		return id, f, nil
	}

	raw, err := BuildFieldValue(ctx, vb, f.Type, g.Get(forms.SuffixValue))
	if err != nil {
		return "", f, err
	}
	switch {
	case raw != nil:
		f.Value = *raw
	case found:
		f.Value = old.Value
	}

	return id, f, nil
}

// BuildFieldValue runs vb on part after checking that the part fits a field
// of type t. A nil result means no new value was submitted.
func BuildFieldValue(ctx context.Context, vb ValueBuilder, t fields.Type, part *forms.Part) (*fields.Raw, error) {
	part, err := valuePart(t, part)
	if err != nil {
		return nil, err
	}
	return vb.BuildValue(ctx, part)
}

// valuePart checks that the submitted part fits the field type. An empty
// plain part on a FILE field means the file input was left untouched.
func valuePart(t fields.Type, part *forms.Part) (*forms.Part, error) {
	if part == nil {
		return nil, nil
	}
	if t == fields.File {
		if !part.IsFile {
			if strings.TrimSpace(part.Text()) == "" {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: file field got a plain value", common.ErrorMalformedInput)
		}
		return part, nil
	}
	if part.IsFile {
		return nil, fmt.Errorf("%w: %s field got a file", common.ErrorMalformedInput, t)
	}
	return part, nil
}

func parseOrder(part *forms.Part) (int, error) {
	if part == nil {
		return 0, fmt.Errorf("%w: missing order", common.ErrorMalformedInput)
	}
	n, err := strconv.Atoi(strings.TrimSpace(part.Text()))
	if err != nil {
		return 0, fmt.Errorf("%w: bad order %q", common.ErrorMalformedInput, part.Text())
	}
	return n, nil
}

// SanitizeLabel trims surrounding whitespace, then drops one trailing colon.
// Whitespace left before that colon is kept.
func SanitizeLabel(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ":")
}

// Summary counts what a reconciliation did to a field map.
type Summary struct {
	Created int
	Updated int
	Deleted int
}

// Summarize compares the maps before and after a reconciliation.
func Summarize(before, after fields.Map) Summary {
	var s Summary
	for id := range after {
		if _, ok := before[id]; ok {
			s.Updated++
		} else {
			s.Created++
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			s.Deleted++
		}
	}
	return s
}
