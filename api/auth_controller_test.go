package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"pollblog-backend/auth"
	"pollblog-backend/repository"
	"pollblog-backend/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	env := setupTestEnvironment(t, nil)
	accounts := service.NewAccountService(repository.NewUserRepository(env.db), auth.NewTokenIssuer("test-secret", time.Hour), discardLogger())
	_, err := accounts.EnsureUser(context.Background(), "carol", "correct horse", false)
	require.NoError(t, err)

	w := env.do(http.MethodPost, "/api/auth/login", "", LoginForm{Username: "carol", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, decode[ErrorResponse](t, w).LoginURL)

	w = env.do(http.MethodPost, "/api/auth/login", "", LoginForm{Username: "nobody", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "carol"}).Code)

	w = env.do(http.MethodPost, "/api/auth/login", "", LoginForm{Username: "carol", Password: "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[service.LoginResult](t, w)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "carol", result.Caller.Username)

	w = env.do(http.MethodGet, "/api/auth/me", result.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "carol", decode[service.Caller](t, w).Username)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/auth/me", "", nil).Code)
}
