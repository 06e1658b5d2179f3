package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	kindRaw       = "raw"
	kindReference = "reference"
)

type fieldJSON struct {
	Name  string          `json:"name"`
	Order int             `json:"order"`
	Type  Type            `json:"type"`
	Value json.RawMessage `json:"value"`
}

type rawJSON struct {
	Kind  string `json:"@type"`
	Value any    `json:"value"`
}

type referenceJSON struct {
	Kind    string `json:"@type"`
	FieldID string `json:"fieldId"`
}

type valueHeader struct {
	Kind    string          `json:"@type"`
	Value   json.RawMessage `json:"value"`
	FieldID string          `json:"fieldId"`
}

// EncodeValue renders a value in its document form; nil encodes as null.
func EncodeValue(v Value) ([]byte, error) {
	type result struct {
		b   []byte
		err error
	}
	r := Match(v,
		func() result { return result{b: []byte("null")} },
		func(raw Raw) result {
			var content any = raw.Text
			if raw.IsFile {
				content = raw.FileID
			}
			b, err := json.Marshal(rawJSON{Kind: kindRaw, Value: content})
			return result{b: b, err: err}
		},
		func(ref Reference) result {
			b, err := json.Marshal(referenceJSON{Kind: kindReference, FieldID: ref.FieldID})
			return result{b: b, err: err}
		},
	)
	return r.b, r.err
}

// DecodeValue parses the document form of a value held by a field of type t.
// A JSON null yields nil. Raw content of a FILE field must be an integer file
// id; TEXT and DATE content is always read as text.
func DecodeValue(b []byte, t Type) (Value, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, nil
	}

	var h valueHeader
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("decode field value: %w", err)
	}

	switch h.Kind {
	case kindRaw:
		if t == File {
			return decodeFileID(h.Value)
		}
		return decodeText(h.Value)
	case kindReference:
		if h.FieldID == "" {
			return nil, fmt.Errorf("decode field value: reference without fieldId")
		}
		return Reference{FieldID: h.FieldID}, nil
	default:
		return nil, fmt.Errorf("decode field value: unknown @type %q", h.Kind)
	}
}

func decodeText(b json.RawMessage) (Value, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return TextValue(""), nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("decode raw text: %w", err)
		}
		return TextValue(s), nil
	}

	// Numbers keep their JSON spelling.
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("decode raw text: %w", err)
	}
	return TextValue(n.String()), nil
}

func decodeFileID(b json.RawMessage) (Value, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return nil, fmt.Errorf("decode raw file id: %w", err)
	}
	id, err := n.Int64()
	if err != nil {
		return nil, fmt.Errorf("decode raw file id: %w", err)
	}
	return FileValue(id), nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	value, err := EncodeValue(f.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldJSON{Name: f.Name, Order: f.Order, Type: f.Type, Value: value})
}

func (f *Field) UnmarshalJSON(b []byte) error {
	var aux fieldJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t, err := ParseType(string(aux.Type))
	if err != nil {
		return err
	}
	v, err := DecodeValue(aux.Value, t)
	if err != nil {
		return err
	}
	*f = Field{Name: aux.Name, Order: aux.Order, Type: t, Value: v}
	return nil
}

// Marshal encodes a field map document. A nil map encodes as {}.
func Marshal(m Map) ([]byte, error) {
	if m == nil {
		m = Map{}
	}
	b, err := json.Marshal(map[string]Field(m))
	if err != nil {
		return nil, fmt.Errorf("encode field map: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a field map document. Empty input and null both decode
// to an empty map.
func Unmarshal(b []byte) (Map, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return Map{}, nil
	}
	var m map[string]Field
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode field map: %w", err)
	}
	if m == nil {
		return Map{}, nil
	}
	return Map(m), nil
}
