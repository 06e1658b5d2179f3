package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/selva/internal/common"
	"github.com/dmitrijs2005/selva/internal/fields"
	"github.com/dmitrijs2005/selva/internal/logging"
	"github.com/dmitrijs2005/selva/internal/server/auth"
	"github.com/dmitrijs2005/selva/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, rm *fakeRepoManager) *UserService {
	t.Helper()
	s := NewUserService(newSQLiteDB(t), rm, testConfig(), nopLogger)
	s.newID = sequentialIDs("f")
	return s
}

func TestRegister_SeedsBaseProfile(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)

	u, err := s.Register(context.Background(), "  alice ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, models.RoleUser, u.Role)
	require.NoError(t, auth.CheckSecret(u.PasswordHash, "secret"))

	want := fields.Map{
		"f-1": {Name: "Name", Order: 0, Type: fields.Text, Value: fields.TextValue("")},
		"f-2": {Name: "Surname", Order: 1, Type: fields.Text, Value: fields.TextValue("")},
	}
	if diff := cmp.Diff(want, rm.base[u.ID].Fields); diff != "" {
		t.Errorf("seeded fields mismatch (-want +got):\n%s", diff)
	}
}

func TestRegister_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "  ", "secret"},
		{"empty password", "alice", ""},
		{"password too long", "alice", strings.Repeat("x", maxPasswordLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newFakeRepoManager()
			_, err := newUserService(t, rm).Register(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, common.ErrorMalformedInput)
			assert.Empty(t, rm.users)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)

	_, err := s.Register(context.Background(), "alice", "secret")
	require.NoError(t, err)
	_, err = s.Register(context.Background(), "alice", "other")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestRegister_RollsBackWhenProfileFails(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := newFakeRepoManager()
	rm.failures["BaseProfiles.Create"] = errBoom{}
	s := NewUserService(db, rm, testConfig(), nopLogger)

	_, err := s.Register(context.Background(), "alice", "secret")
	if err == nil || !strings.Contains(err.Error(), "error creating base profile: boom") {
		t.Fatalf("expected wrapped profile error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLogin(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	u, err := s.Register(context.Background(), "alice", "secret")
	require.NoError(t, err)

	token, err := s.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)

	claims, err := s.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	_, err = s.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = s.Login(context.Background(), "ghost", "secret")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogin_RepositoryError(t *testing.T) {
	rm := newFakeRepoManager()
	rm.failures["Users.GetUserByLogin"] = errBoom{}

	var logs bytes.Buffer
	s := NewUserService(newSQLiteDB(t), rm, testConfig(), logging.NewJSONLogger(&logs, "debug"))

	_, err := s.Login(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.ErrorContains(t, err, "boom")
	assert.Contains(t, logs.String(), "login user lookup failed")
	assert.Contains(t, logs.String(), "boom")
}

func TestAuthenticate_Garbage(t *testing.T) {
	_, err := newUserService(t, newFakeRepoManager()).Authenticate("not-a-jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestDelete(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	u, err := s.Register(context.Background(), "alice", "secret")
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), u.ID))
	assert.Empty(t, rm.users)
	assert.Empty(t, rm.base)

	err = s.Delete(context.Background(), u.ID)
	assert.True(t, errors.Is(err, common.ErrorNotFound), "got %v", err)
}

func TestEnsureAdmin(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)

	require.NoError(t, s.EnsureAdmin(context.Background(), "admin", "pw"))
	require.NoError(t, s.EnsureAdmin(context.Background(), "admin", "changed"))
	require.Len(t, rm.users, 1)

	for _, u := range rm.users {
		assert.Equal(t, models.RoleAdmin, u.Role)
		assert.NoError(t, auth.CheckSecret(u.PasswordHash, "pw"))
	}

	require.NoError(t, s.EnsureAdmin(context.Background(), "", ""))
	assert.Len(t, rm.users, 1)
}

func TestEnsureAdmin_LookupError(t *testing.T) {
	rm := newFakeRepoManager()
	rm.failures["Users.GetUserByLogin"] = errBoom{}

	err := newUserService(t, rm).EnsureAdmin(context.Background(), "admin", "pw")
	assert.Error(t, err)
	assert.Empty(t, rm.users)
}
