// Package formfields turns submitted form parts into field values and field
// maps. The Builder produces a single value; the Reconciler applies a whole
// submission to an existing field map.
package formfields

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/server/forms"
)

// FileCreator persists uploaded content and returns the new file id. Callers
// bind it to the transaction the resulting field map is written in.
type FileCreator interface {
	Create(ctx context.Context, fileName string, content []byte) (int64, error)
}

// ValueBuilder builds a raw value from a submitted part.
type ValueBuilder interface {
	BuildValue(ctx context.Context, part *forms.Part) (*fields.Raw, error)
}

type Builder struct {
	files FileCreator
}

func NewBuilder(files FileCreator) *Builder {
	return &Builder{files: files}
}

// BuildValue returns nil when no part was submitted or when a file input was
// left empty. Plain parts become text values, file parts are stored first.
func (b *Builder) BuildValue(ctx context.Context, part *forms.Part) (*fields.Raw, error) {
	if part == nil {
		return nil, nil
	}

	if !part.IsFile {
		v := fields.TextValue(part.Text())
		return &v, nil
	}

	if part.IsEmpty() {
		return nil, nil
	}

	if b.files == nil {
		return nil, fmt.Errorf("no file storage for part %q", part.Name)
	}

	id, err := b.files.Create(ctx, part.FileName, part.Content)
	if err != nil {
		return nil, fmt.Errorf("store file %q: %w", part.FileName, err)
	}

	v := fields.FileValue(id)
	return &v, nil
}
