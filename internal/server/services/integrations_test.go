package services

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/server/formfields"
	"github.com/dmitrijs2005/selva/internal/server/forms"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationService(t *testing.T, rm *fakeRepoManager) *IntegrationService {
	t.Helper()
	reconciler := formfields.NewReconciler(formfields.WithIDGenerator(sequentialIDs("t")))
	return NewIntegrationService(newSQLiteDB(t), rm, reconciler, nil, nopLogger)
}

func bankTemplateParts() []forms.Part {
	return []forms.Part{
		textPart(PartName, " Bank "),
		filePart(PartLogo, "logo.png", "PNG"),
		textPart("a__label", "Name"),
		textPart("a__type", "TEXT"),
		textPart("a__order", "0"),
		textPart("a__value", "ignored"),
		textPart("b__label", "Passport"),
		textPart("b__type", "FILE"),
		textPart("b__order", "1"),
	}
}

func TestIntegrationService_Create(t *testing.T) {
	rm := newFakeRepoManager()
	s := newIntegrationService(t, rm)

	created, err := s.Create(context.Background(), bankTemplateParts())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.Token, strconv.FormatInt(created.ID, 10)+common.TokenSeparator), created.Token)

	in := rm.ints[created.ID]
	require.NotNil(t, in)
	assert.Equal(t, "Bank", in.Name)
	assert.Equal(t, []byte("PNG"), in.Logo)
	assert.NotContains(t, string(in.TokenHash), created.Token)

	want := fields.Map{
		"t-1": {Name: "Name", Order: 0, Type: fields.Text},
		"t-2": {Name: "Passport", Order: 1, Type: fields.File},
	}
	if diff := cmp.Diff(want, in.Template); diff != "" {
		t.Errorf("template mismatch (-want +got):\n%s", diff)
	}

	id, err := s.AuthenticateToken(context.Background(), created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)
}

func TestIntegrationService_CreateMalformed(t *testing.T) {
	tests := []struct {
		name  string
		parts []forms.Part
	}{
		{name: "no name", parts: []forms.Part{textPart("a__label", "Name"), textPart("a__type", "TEXT"), textPart("a__order", "0")}},
		{name: "blank name", parts: []forms.Part{textPart(PartName, "  ")}},
		{name: "bad type", parts: []forms.Part{textPart(PartName, "Bank"), textPart("a__label", "X"), textPart("a__type", "NUMBER"), textPart("a__order", "0")}},
		{name: "stray part", parts: []forms.Part{textPart(PartName, "Bank"), textPart("stray", "x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newFakeRepoManager()
			_, err := newIntegrationService(t, rm).Create(context.Background(), tt.parts)
			assert.ErrorIs(t, err, common.ErrorMalformedInput)
			assert.Empty(t, rm.ints)
		})
	}
}

func TestIntegrationService_CreateRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := newFakeRepoManager()
	rm.failures["Integrations.Create"] = errBoom{}
	s := NewIntegrationService(db, rm, formfields.NewReconciler(), nil, nopLogger)

	_, err := s.Create(context.Background(), bankTemplateParts())
	assert.ErrorContains(t, err, "error creating integration: boom")
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestIntegrationService_Update(t *testing.T) {
	rm := newFakeRepoManager()
	s := newIntegrationService(t, rm)
	created, err := s.Create(context.Background(), bankTemplateParts())
	require.NoError(t, err)

	in, err := s.Update(context.Background(), created.ID, []forms.Part{
		textPart("t-2__label", "Renamed"),
		textPart("t-2__type", "TEXT"),
		textPart("t-2__order", "5"),
		textPart("c__label", "Email"),
		textPart("c__type", "text"),
		textPart("c__order", "2"),
		filePart(PartLogo, "", ""),
	})
	require.NoError(t, err)

	assert.Equal(t, "Bank", in.Name)
	assert.Equal(t, []byte("PNG"), rm.ints[created.ID].Logo)

	want := fields.Map{
		"t-2": {Name: "Passport", Order: 5, Type: fields.File},
		"t-3": {Name: "Email", Order: 2, Type: fields.Text},
	}
	if diff := cmp.Diff(want, rm.ints[created.ID].Template); diff != "" {
		t.Errorf("template mismatch (-want +got):\n%s", diff)
	}

	_, err = s.Update(context.Background(), created.ID, []forms.Part{textPart(PartName, "Bank 2"), filePart(PartLogo, "l.png", "NEW")})
	require.NoError(t, err)
	assert.Equal(t, "Bank 2", rm.ints[created.ID].Name)
	assert.Equal(t, []byte("NEW"), rm.ints[created.ID].Logo)
	assert.Empty(t, rm.ints[created.ID].Template)

	_, err = s.Update(context.Background(), 999, nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIntegrationService_RotateToken(t *testing.T) {
	rm := newFakeRepoManager()
	s := newIntegrationService(t, rm)
	created, err := s.Create(context.Background(), bankTemplateParts())
	require.NoError(t, err)

	rotated, err := s.RotateToken(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, created.Token, rotated)

	_, err = s.AuthenticateToken(context.Background(), created.Token)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	id, err := s.AuthenticateToken(context.Background(), rotated)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	_, err = s.RotateToken(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIntegrationService_AuthenticateTokenRejects(t *testing.T) {
	rm := newFakeRepoManager()
	s := newIntegrationService(t, rm)
	created, err := s.Create(context.Background(), bankTemplateParts())
	require.NoError(t, err)

	for _, token := range []string{
		"",
		"garbage",
		"x__abc",
		strconv.FormatInt(created.ID, 10) + "__",
		strconv.FormatInt(created.ID, 10) + "__deadbeef",
		"999__" + strings.SplitN(created.Token, "__", 2)[1],
	} {
		_, err := s.AuthenticateToken(context.Background(), token)
		assert.ErrorIs(t, err, common.ErrorUnauthorized, "token %q", token)
	}
}

func TestIntegrationService_AuthenticateTokenStorageError(t *testing.T) {
	rm := newFakeRepoManager()
	rm.failures["Integrations.GetByID"] = errBoom{}

	_, err := newIntegrationService(t, rm).AuthenticateToken(context.Background(), "1__abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

func TestIntegrationService_ListLogoDelete(t *testing.T) {
	rm := newFakeRepoManager()
	s := newIntegrationService(t, rm)
	withLogo, err := s.Create(context.Background(), bankTemplateParts())
	require.NoError(t, err)
	plain, err := s.Create(context.Background(), []forms.Part{textPart(PartName, "Shop")})
	require.NoError(t, err)

	list, err := s.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].HasLogo)
	assert.False(t, list[1].HasLogo)
	assert.Nil(t, list[0].ExternalProfileID)

	logo, err := s.Logo(context.Background(), withLogo.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("PNG"), logo)
	_, err = s.Logo(context.Background(), plain.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.Delete(context.Background(), plain.ID))
	_, err = s.Get(context.Background(), plain.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, s.Delete(context.Background(), plain.ID), common.ErrorNotFound)
}
