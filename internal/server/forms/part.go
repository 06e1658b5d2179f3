// Package forms holds the decoded multipart submission the services work
// on: named parts with their bytes and, for uploads, the original file name.
package forms

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/selva/internal/common"
)

// Part suffixes of a field group ("<fieldId>__<suffix>").
const (
	SuffixLabel     = "label"
	SuffixType      = "type"
	SuffixOrder     = "order"
	SuffixValue     = "value"
	SuffixReference = "reference"
)

// Part is one decoded form part. File parts carry IsFile and FileName.
type Part struct {
	Name     string
	Content  []byte
	FileName string
	IsFile   bool
}

// Text returns the content decoded as UTF-8.
func (p Part) Text() string {
	return string(p.Content)
}

// IsEmpty reports whether the part carries neither content nor a file name.
// Browsers submit such parts for untouched file inputs.
func (p Part) IsEmpty() bool {
	return len(p.Content) == 0 && p.FileName == ""
}

// SplitName splits a part name on the first separator into field id and
// suffix. ok is false when the name has no separator or an empty id.
func SplitName(name string) (fieldID, suffix string, ok bool) {
	fieldID, suffix, found := strings.Cut(name, common.TokenSeparator)
	if !found || fieldID == "" {
		return "", "", false
	}
	return fieldID, suffix, true
}

// Group is every part submitted for one field id.
type Group struct {
	ID    string
	parts map[string]Part
}

// NewGroup builds a group from suffix -> part pairs.
func NewGroup(id string, parts map[string]Part) Group {
	if parts == nil {
		parts = map[string]Part{}
	}
	return Group{ID: id, parts: parts}
}

// Get returns the part with the given suffix, nil when it was not submitted.
func (g Group) Get(suffix string) *Part {
	p, ok := g.parts[suffix]
	if !ok {
		return nil
	}
	return &p
}

// Form is a whole submission indexed by part name. When a name repeats the
// last part wins.
type Form struct {
	parts map[string]Part
}

func NewForm(parts []Part) *Form {
	m := make(map[string]Part, len(parts))
	for _, p := range parts {
		m[p.Name] = p
	}
	return &Form{parts: m}
}

// Pop removes and returns a non-field part such as "name" or "is-public".
func (f *Form) Pop(name string) (Part, bool) {
	p, ok := f.parts[name]
	if ok {
		delete(f.parts, name)
	}
	return p, ok
}

// Len is the number of parts still in the form.
func (f *Form) Len() int {
	return len(f.parts)
}

// Groups groups the remaining parts by field id, sorted by id. Any part whose
// name is not "<fieldId>__<suffix>" makes the form malformed.
func (f *Form) Groups() ([]Group, error) {
	byID := make(map[string]map[string]Part)
	for name, p := range f.parts {
		id, suffix, ok := SplitName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected part %q", common.ErrorMalformedInput, name)
		}
		if byID[id] == nil {
			byID[id] = make(map[string]Part)
		}
		byID[id][suffix] = p
	}

	groups := make([]Group, 0, len(byID))
	for id, parts := range byID {
		groups = append(groups, NewGroup(id, parts))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}
