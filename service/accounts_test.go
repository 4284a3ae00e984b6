package service

import (
	"context"
	"testing"
	"time"

	"pollblog-backend/auth"
	"pollblog-backend/database"
	"pollblog-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T) *AccountService {
	t.Helper()
	db := database.NewTestDB(t)
	return NewAccountService(repository.NewUserRepository(db), auth.NewTokenIssuer("secret", time.Hour), discardLogger())
}

func TestLoginAndAuthenticate(t *testing.T) {
	accounts := newAccountService(t)
	ctx := context.Background()

	user, err := accounts.EnsureUser(ctx, "admin", "s3cret", true)
	require.NoError(t, err)

	result, err := accounts.Login(ctx, "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.Caller.UserID)
	assert.True(t, result.Caller.IsStaff)

	caller, err := accounts.Authenticate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", caller.Username)
	assert.True(t, caller.Authenticated())
	assert.NoError(t, RequireStaff(caller))

	_, err = accounts.Authenticate("garbage")
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
}

func TestLoginRejects(t *testing.T) {
	accounts := newAccountService(t)
	ctx := context.Background()
	_, err := accounts.EnsureUser(ctx, "ann", "right", false)
	require.NoError(t, err)

	_, err = accounts.Login(ctx, "ann", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = accounts.Login(ctx, "nobody", "right")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	accounts := newAccountService(t)
	ctx := context.Background()

	first, err := accounts.EnsureUser(ctx, "ann", "one", false)
	require.NoError(t, err)
	second, err := accounts.EnsureUser(ctx, "ann", "two", true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsStaff)

	_, err = accounts.Login(ctx, "ann", "one")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = accounts.Login(ctx, "ann", "two")
	assert.NoError(t, err)

	_, err = accounts.EnsureUser(ctx, "", "x", false)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = accounts.EnsureUser(ctx, "bob", "", false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRequireStaff(t *testing.T) {
	assert.ErrorIs(t, RequireStaff(nil), ErrAuthenticationRequired)
	assert.ErrorIs(t, RequireStaff(&Caller{UserID: 1}), ErrPermissionDenied)
	assert.NoError(t, RequireStaff(&Caller{UserID: 1, IsStaff: true}))
}
