package forms

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textPart(name, value string) Part {
	return Part{Name: name, Content: []byte(value)}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name       string
		wantID     string
		wantSuffix string
		wantOK     bool
	}{
		{name: "f1__label", wantID: "f1", wantSuffix: "label", wantOK: true},
		{name: "f1__value__extra", wantID: "f1", wantSuffix: "value__extra", wantOK: true},
		{name: "new-3__order", wantID: "new-3", wantSuffix: "order", wantOK: true},
		{name: "is-public"},
		{name: "__label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, suffix, ok := SplitName(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantSuffix, suffix)
		})
	}
}

func TestForm_GroupsSortedByID(t *testing.T) {
	f := NewForm([]Part{
		textPart("b__label", "B"),
		textPart("a__order", "1"),
		textPart("b__order", "0"),
		textPart("a__value", "x"),
	})

	groups, err := f.Groups()
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "a", groups[0].ID)
	assert.Equal(t, "1", groups[0].Get(SuffixOrder).Text())
	assert.Equal(t, "x", groups[0].Get(SuffixValue).Text())
	assert.Nil(t, groups[0].Get(SuffixLabel))

	assert.Equal(t, "b", groups[1].ID)
	assert.Equal(t, "B", groups[1].Get(SuffixLabel).Text())
}

func TestForm_PopThenGroup(t *testing.T) {
	f := NewForm([]Part{
		textPart("name", "Acme"),
		textPart("is-public", "on"),
		textPart("f1__order", "0"),
	})

	name, ok := f.Pop("name")
	require.True(t, ok)
	assert.Equal(t, "Acme", name.Text())

	_, ok = f.Pop("logo")
	assert.False(t, ok)

	_, err := f.Groups()
	require.Error(t, err, "is-public was not popped")
	assert.True(t, errors.Is(err, common.ErrorMalformedInput))

	f.Pop("is-public")
	groups, err := f.Groups()
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestForm_LastDuplicateWins(t *testing.T) {
	f := NewForm([]Part{textPart("f__order", "1"), textPart("f__order", "2")})
	groups, err := f.Groups()
	require.NoError(t, err)
	assert.Equal(t, "2", groups[0].Get(SuffixOrder).Text())
	assert.Equal(t, 1, f.Len())
}

func TestPart_IsEmpty(t *testing.T) {
	assert.True(t, Part{IsFile: true}.IsEmpty())
	assert.False(t, Part{IsFile: true, FileName: "a.pdf"}.IsEmpty())
	assert.False(t, Part{Content: []byte("x")}.IsEmpty())
}
