package fields

import (
	"maps"
	"sort"
)

// Field is one entry of a field map.
type Field struct {
	Name  string
	Order int
	Type  Type
	Value Value
}

// Map is a field map keyed by synthetic field id.
type Map map[string]Field

// Entry pairs a field with its id.
type Entry struct {
	ID string
	Field
}

// Clone returns a shallow copy; values are immutable so this is enough.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	return maps.Clone(m)
}

// Sorted returns the fields by ascending Order, ties broken by id.
func (m Map) Sorted() []Entry {
	out := make([]Entry, 0, len(m))
	for id, f := range m {
		out = append(out, Entry{ID: id, Field: f})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// IDs returns the field ids in display order.
func (m Map) IDs() []string {
	sorted := m.Sorted()
	ids := make([]string, len(sorted))
	for i, e := range sorted {
		ids[i] = e.ID
	}
	return ids
}

// WithoutValues returns a copy with every value cleared, as stored in
// integration templates.
func (m Map) WithoutValues() Map {
	out := make(Map, len(m))
	for id, f := range m {
		f.Value = nil
		out[id] = f
	}
	return out
}

// FileIDs lists the ids of files referenced by raw FILE values.
func (m Map) FileIDs() []int64 {
	var ids []int64
	for _, e := range m.Sorted() {
		if id, ok := RawFileID(e.Value); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// RawFileID extracts a file id from a raw file value.
func RawFileID(v Value) (int64, bool) {
	type result struct {
		id int64
		ok bool
	}
	r := Match(v,
		func() result { return result{} },
		func(raw Raw) result { return result{id: raw.FileID, ok: raw.IsFile} },
		func(Reference) result { return result{} },
	)
	return r.id, r.ok
}
