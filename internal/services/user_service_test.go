package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserNormalizesFields(t *testing.T) {
	svc, db := newTestUserService(t)

	user, err := svc.CreateUser("  Rohan Shakya   ", "Rohan@Example.COM", "rohan123!", 20)
	require.NoError(t, err)

	assert.Equal(t, "Rohan Shakya", user.Name)
	assert.Equal(t, "rohan@example.com", user.Email)
	assert.Equal(t, 20, user.Age)
	assert.Empty(t, user.PasswordHash)

	// The stored hash must never equal the plaintext.
	var storedHash string
	require.NoError(t, db.QueryRow("SELECT password_hash FROM users WHERE id = ?", user.ID).Scan(&storedHash))
	assert.NotEmpty(t, storedHash)
	assert.NotEqual(t, "rohan123!", storedHash)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestUserService(t)

	cases := []struct {
		name     string
		userName string
		email    string
		password string
		age      int
	}{
		{"empty name", "   ", "a@b.com", "rohan123!", 0},
		{"bad email", "Rohan", "not-an-email", "rohan123!", 0},
		{"short password", "Rohan", "a@b.com", "abc", 0},
		{"password contains password", "Rohan", "a@b.com", "Password123", 0},
		{"negative age", "Rohan", "a@b.com", "rohan123!", -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUser(tc.userName, tc.email, tc.password, tc.age)
			var verr *ValidationError
			require.Error(t, err)
			assert.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
		})
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.CreateUser("Rohan", "a@b.com", "rohan123!", 20)
	require.NoError(t, err)

	_, err = svc.CreateUser("Other", "a@b.com", "other123!", 30)
	var verr *ValidationError
	require.Error(t, err)
	assert.True(t, errors.As(err, &verr))
}

func TestAuthenticateUser(t *testing.T) {
	svc, _ := newTestUserService(t)

	created, err := svc.CreateUser("Rohan", "a@b.com", "rohan123!", 20)
	require.NoError(t, err)

	user, err := svc.AuthenticateUser("a@b.com", "rohan123!")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.AuthenticateUser("a@b.com", "wrongpass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateUser("nobody@b.com", "rohan123!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenLifecycle(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, err := svc.CreateUser("Rohan", "a@b.com", "rohan123!", 20)
	require.NoError(t, err)

	first, err := svc.IssueToken(user.ID)
	require.NoError(t, err)
	second, err := svc.IssueToken(user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	resolved, err := svc.ResolveToken(first)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	// Revoking one token leaves the other alive.
	require.NoError(t, svc.RevokeToken(user.ID, first))
	_, err = svc.ResolveToken(first)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ResolveToken(second)
	require.NoError(t, err)

	// Revoking everything kills the rest.
	require.NoError(t, svc.RevokeAllTokens(user.ID))
	_, err = svc.ResolveToken(second)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveTokenUnknown(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.ResolveToken("never-issued")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserPartial(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, err := svc.CreateUser("Rohan", "a@b.com", "rohan123!", 20)
	require.NoError(t, err)

	name := "  New Name "
	age := 21
	updated, err := svc.UpdateUser(user.ID, UserUpdate{Name: &name, Age: &age})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, 21, updated.Age)
	assert.Equal(t, "a@b.com", updated.Email)
}

func TestUpdateUserRejectsBadValueWithoutWriting(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, err := svc.CreateUser("Rohan", "a@b.com", "rohan123!", 20)
	require.NoError(t, err)

	name := "New Name"
	badEmail := "not-an-email"
	_, err = svc.UpdateUser(user.ID, UserUpdate{Name: &name, Email: &badEmail})
	var verr *ValidationError
	require.Error(t, err)
	assert.True(t, errors.As(err, &verr))

	// Nothing was applied, the valid field included.
	current, err := svc.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rohan", current.Name)
	assert.Equal(t, "a@b.com", current.Email)
}

func TestUpdateUserRehashesPassword(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, err := svc.CreateUser("Rohan", "a@b.com", "rohan123!", 20)
	require.NoError(t, err)

	newPassword := "fresh456!"
	_, err = svc.UpdateUser(user.ID, UserUpdate{Password: &newPassword})
	require.NoError(t, err)

	_, err = svc.AuthenticateUser("a@b.com", "rohan123!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.AuthenticateUser("a@b.com", "fresh456!")
	require.NoError(t, err)
}

func TestUpdateUserNotFound(t *testing.T) {
	svc, _ := newTestUserService(t)

	name := "Whoever"
	_, err := svc.UpdateUser("missing-id", UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	svc, db := newTestUserService(t)
	tasks := NewTaskService(db)

	user, err := svc.CreateUser("Rohan", "a@b.com", "rohan123!", 20)
	require.NoError(t, err)

	token, err := svc.IssueToken(user.ID)
	require.NoError(t, err)
	_, err = tasks.CreateTask(user.ID, "First task", false)
	require.NoError(t, err)

	deleted, err := svc.DeleteUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, deleted.ID)

	_, err = svc.GetUserByID(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ResolveToken(token)
	assert.ErrorIs(t, err, ErrNotFound)

	owned, err := tasks.ListTasks(user.ID, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestAvatarLifecycle(t *testing.T) {
	svc, _ := newTestUserService(t)

	user, err := svc.CreateUser("Rohan", "a@b.com", "rohan123!", 20)
	require.NoError(t, err)

	_, err = svc.GetAvatar(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	payload := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	require.NoError(t, svc.SetAvatar(user.ID, payload))

	got, err := svc.GetAvatar(user.ID)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, svc.ClearAvatar(user.ID))
	_, err = svc.GetAvatar(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetAvatar("missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
