// Package resolver builds the view of a user's external profiles served to
// integrations: references are replaced by base profile values and stored
// files by one-time download URLs.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/server/models"
)

// URLIssuer mints a download URL for a stored file.
type URLIssuer interface {
	Issue(ctx context.Context, fileID int64) (string, error)
}

// Field is a resolved field. Value is nil when the field has no value or
// references a base field that no longer exists.
type Field struct {
	Name  string
	Order int
	Type  fields.Type
	Value *string
}

type Profile struct {
	IntegrationID   int64
	IntegrationName string
	Fields          []Field
}

// ByLabel indexes the fields by label. When labels repeat, the field shown
// first wins.
func (p Profile) ByLabel() map[string]Field {
	out := make(map[string]Field, len(p.Fields))
	for _, f := range p.Fields {
		if _, ok := out[f.Name]; !ok {
			out[f.Name] = f
		}
	}
	return out
}

// Result splits the profiles into the one of the requesting integration and
// the public profiles of every other integration, ordered by integration id.
type Result struct {
	Current *Profile
	Other   []Profile
}

type Resolver struct {
	urls URLIssuer
}

func New(urls URLIssuer) *Resolver {
	return &Resolver{urls: urls}
}

// Resolve resolves rows, all belonging to one user, on behalf of
// integrationID. Private profiles of other integrations are left out and
// never resolved.
func (r *Resolver) Resolve(ctx context.Context, rows []models.ProfileRow, integrationID int64) (*Result, error) {
	sorted := make([]models.ProfileRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].IntegrationID < sorted[j].IntegrationID })

	res := &Result{Other: []Profile{}}
	for _, row := range sorted {
		isCurrent := row.IntegrationID == integrationID
		if !isCurrent && !row.IsPublic {
			continue
		}

		p, err := r.resolveProfile(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("resolve profile %d: %w", row.ProfileID, err)
		}

		if isCurrent {
			res.Current = p
		} else {
			res.Other = append(res.Other, *p)
		}
	}
	return res, nil
}

func (r *Resolver) resolveProfile(ctx context.Context, row models.ProfileRow) (*Profile, error) {
	p := &Profile{
		IntegrationID:   row.IntegrationID,
		IntegrationName: row.IntegrationName,
		Fields:          make([]Field, 0, len(row.Fields)),
	}
	for _, e := range row.Fields.Sorted() {
		v, err := r.resolveValue(ctx, e.Value, row.BaseFields)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", e.ID, err)
		}
		p.Fields = append(p.Fields, Field{Name: e.Name, Order: e.Order, Type: e.Type, Value: v})
	}
	return p, nil
}

type lookup struct {
	raw fields.Raw
	ok  bool
}

func (r *Resolver) resolveValue(ctx context.Context, v fields.Value, base fields.Map) (*string, error) {
	found := fields.Match(v,
		func() lookup { return lookup{} },
		func(raw fields.Raw) lookup { return lookup{raw: raw, ok: true} },
		func(ref fields.Reference) lookup { return dereference(ref, base) },
	)
	if !found.ok {
		return nil, nil
	}

	if !found.raw.IsFile {
		s := found.raw.Text
		return &s, nil
	}

	url, err := r.urls.Issue(ctx, found.raw.FileID)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

// dereference looks the target up in the base profile. Base profiles hold
// raw values only; anything else counts as missing.
func dereference(ref fields.Reference, base fields.Map) lookup {
	target, ok := base[ref.FieldID]
	if !ok {
		return lookup{}
	}
	return fields.Match(target.Value,
		func() lookup { return lookup{} },
		func(raw fields.Raw) lookup { return lookup{raw: raw, ok: true} },
		func(fields.Reference) lookup { return lookup{} },
	)
}
