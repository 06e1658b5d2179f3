package formfields

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/server/forms"
)

// AssignValues fills the values of an external profile. Its field set,
// labels, types and orders are fixed by the template snapshot, so only
// "<id>__reference" and "<id>__value" parts are read.
//
// A non-empty reference part links the field to a base field of the same
// type; otherwise the value part is built and a nil result keeps the stored
// value. Groups naming fields the profile does not have are malformed.
func AssignValues(ctx context.Context, existing, base fields.Map, groups []forms.Group, vb ValueBuilder) (fields.Map, error) {
	if vb == nil {
		return nil, fmt.Errorf("assign values: nil value builder")
	}

	result := existing.Clone()

	for _, g := range groups {
		f, ok := result[g.ID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %s", common.ErrorMalformedInput, g.ID)
		}

		if ref := g.Get(forms.SuffixReference); ref != nil && strings.TrimSpace(ref.Text()) != "" {
			targetID := strings.TrimSpace(ref.Text())
			target, ok := base[targetID]
			if !ok {
				return nil, fmt.Errorf("%w: field %s references unknown base field %s", common.ErrorMalformedInput, g.ID, targetID)
			}
			if target.Type != f.Type {
				return nil, fmt.Errorf("%w: field %s of type %s cannot reference %s field", common.ErrorMalformedInput, g.ID, f.Type, target.Type)
			}
			f.Value = fields.Reference{FieldID: targetID}
			result[g.ID] = f
			continue
		}

		raw, err := BuildFieldValue(ctx, vb, f.Type, g.Get(forms.SuffixValue))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", g.ID, err)
		}
		if raw != nil {
			f.Value = *raw
			result[g.ID] = f
		}
	}

	return result, nil
}

// Snapshot copies a template under fresh field ids with every value cleared.
func Snapshot(template fields.Map, newID func() string) fields.Map {
	out := make(fields.Map, len(template))
	for _, e := range template.Sorted() {
		f := e.Field
		f.Value = nil
		out[newID()] = f
	}
	return out
}
