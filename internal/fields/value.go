// Package fields models user-defined profile fields: their types, the closed
// set of value kinds a field can hold, and the field map stored as a JSON
// document for base profiles, external profiles and integration templates.
package fields

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the declared kind of a field.
type Type string

const (
	Text Type = "TEXT"
	Date Type = "DATE"
	File Type = "FILE"
)

// ParseType parses a field type case-insensitively.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case Text, Date, File:
		return t, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

// Value is either a Raw value or a Reference to a base-profile field. The set
// is closed: only this package can add implementations, and every consumer
// goes through Match.
type Value interface {
	isValue()
}

// Raw is literal field content. FILE fields hold the id of a stored file in
// FileID with IsFile set; TEXT and DATE fields hold Text.
type Raw struct {
	Text   string
	FileID int64
	IsFile bool
}

// Reference points at a field id in the same user's base profile.
type Reference struct {
	FieldID string
}

func (Raw) isValue()       {}
func (Reference) isValue() {}

// TextValue returns a raw text (or date string) value.
func TextValue(s string) Raw {
	return Raw{Text: s}
}

// FileValue returns a raw value referring to a stored file.
func FileValue(id int64) Raw {
	return Raw{FileID: id, IsFile: true}
}

// String renders the raw content; file ids are printed in decimal.
func (r Raw) String() string {
	if r.IsFile {
		return strconv.FormatInt(r.FileID, 10)
	}
	return r.Text
}

// Match dispatches on the concrete kind of v. A nil v selects none. Adding a
// value kind changes this signature, so every call site has to handle it.
func Match[T any](v Value, none func() T, raw func(Raw) T, ref func(Reference) T) T {
	switch x := v.(type) {
	case nil:
		return none()
	case Raw:
		return raw(x)
	case *Raw:
		if x == nil {
			return none()
		}
		return raw(*x)
	case Reference:
		return ref(x)
	case *Reference:
		if x == nil {
			return none()
		}
		return ref(*x)
	default:
		panic(fmt.Sprintf("fields: unexpected value kind %T", v))
	}
}
