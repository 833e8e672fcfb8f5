package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"chatpalace/internal/apperr"
	"chatpalace/internal/config"
	"chatpalace/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	config.AppConfig.BcryptCost = bcrypt.MinCost
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newUserService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(newTestStore(t), zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newUserService(t)

	user, err := svc.Register("alice12345", "https://img.example/alice", "s3cret", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice12345", user.Username)
	assert.NotEqual(t, "s3cret", user.PasswordHash, "password must be hashed at rest")

	got, err := svc.Login("alice12345", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegisterDuplicateUsernameConflicts(t *testing.T) {
	svc := newUserService(t)

	_, err := svc.Register("alice12345", "", "one", "one")
	require.NoError(t, err)

	_, err = svc.Register("alice12345", "https://other.example/img", "two", "two")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAlreadyExists, apperr.CodeOf(err))
}

func TestRegisterValidation(t *testing.T) {
	svc := newUserService(t)

	_, err := svc.Register("", "", "pw", "pw")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = svc.Register("alice12345", "", "", "")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = svc.Register("alice12345", "", "pw", "different")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestLoginFailuresLookAlike(t *testing.T) {
	svc := newUserService(t)
	_, err := svc.Register("alice12345", "", "s3cret", "s3cret")
	require.NoError(t, err)

	_, unknownErr := svc.Login("nobody", "whatever")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(unknownErr))

	_, badPassErr := svc.Login("alice12345", "wrong")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(badPassErr))

	// unknown user and bad password must be indistinguishable
	assert.Equal(t, unknownErr.Error(), badPassErr.Error())
}

func TestEditUserKeepsPasswordWhenBlank(t *testing.T) {
	svc := newUserService(t)
	user, err := svc.Register("alice12345", "", "s3cret", "s3cret")
	require.NoError(t, err)

	require.NoError(t, svc.EditUser(user.ID, "alice_renamed", "https://img.example/new", "  "))

	got, err := svc.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_renamed", got.Username)

	// old password still works
	_, err = svc.Login("alice_renamed", "s3cret")
	assert.NoError(t, err)
}

func TestEditUserRehashesNewPassword(t *testing.T) {
	svc := newUserService(t)
	user, err := svc.Register("alice12345", "", "s3cret", "s3cret")
	require.NoError(t, err)

	require.NoError(t, svc.EditUser(user.ID, "alice12345", "", "brandnew"))

	_, err = svc.Login("alice12345", "s3cret")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))

	_, err = svc.Login("alice12345", "brandnew")
	assert.NoError(t, err)
}

func TestEditUserUnknownIDIsServerError(t *testing.T) {
	svc := newUserService(t)
	err := svc.EditUser("no-such-id", "name", "", "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
}

func TestEditUserTakenUsernameConflicts(t *testing.T) {
	svc := newUserService(t)
	_, err := svc.Register("alice12345", "", "pw", "pw")
	require.NoError(t, err)
	bob, err := svc.Register("bob123456", "", "pw", "pw")
	require.NoError(t, err)

	err = svc.EditUser(bob.ID, "alice12345", "", "")
	assert.Equal(t, apperr.CodeAlreadyExists, apperr.CodeOf(err))

	// renaming to your own current name is fine
	assert.NoError(t, svc.EditUser(bob.ID, "bob123456", "", ""))
}

func TestGetUserNotFound(t *testing.T) {
	svc := newUserService(t)
	_, err := svc.GetUser("missing")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestListUsers(t *testing.T) {
	svc := newUserService(t)
	_, err := svc.Register("alice12345", "", "pw", "pw")
	require.NoError(t, err)
	_, err = svc.Register("bob123456", "", "pw", "pw")
	require.NoError(t, err)

	users, err := svc.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
