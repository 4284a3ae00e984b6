package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pollblog-backend/admin"
	"pollblog-backend/auth"
	"pollblog-backend/cache"
	"pollblog-backend/database"
	"pollblog-backend/handlers"
	"pollblog-backend/models"
	"pollblog-backend/mq"
	"pollblog-backend/repository"
	"pollblog-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	router     *gin.Engine
	db         *gorm.DB
	staffToken string
	userToken  string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestEnvironment wires every controller over an in-memory database.
// redis may be nil.
func setupTestEnvironment(t *testing.T, redis cache.RedisClient) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := database.NewTestDB(t)
	logger := discardLogger()
	bus := mq.NewLocalBus(logger)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	polls := service.NewPollService(repository.NewQuestionRepository(db), bus, logger)
	blog := service.NewBlogService(repository.NewPostRepository(db), bus, logger)
	accounts := service.NewAccountService(repository.NewUserRepository(db), tokens, logger)
	site, err := admin.DefaultSite(db, logger)
	require.NoError(t, err)

	router := gin.New()
	router.Use(handlers.Authenticate(accounts, logger))
	group := router.Group("/api")
	NewPollController(polls, logger).RegisterRoutes(group)
	NewBlogController(blog, logger).RegisterRoutes(group)
	NewAuthController(accounts, logger).RegisterRoutes(group)
	NewAdminController(site, redis, logger).RegisterRoutes(group)

	env := &testEnv{router: router, db: db}
	env.staffToken = issue(t, db, tokens, "admin", true)
	env.userToken = issue(t, db, tokens, "writer", false)
	return env
}

func issue(t *testing.T, db *gorm.DB, tokens *auth.TokenIssuer, username string, staff bool) string {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "!", IsStaff: staff}
	require.NoError(t, db.Create(user).Error)
	token, err := tokens.Issue(user.ID, user.Username, user.IsStaff)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequestWithContext(context.Background(), method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createQuestion(t *testing.T, text string, pub time.Time, choices ...string) *models.Question {
	t.Helper()
	q := &models.Question{QuestionText: text, PubDate: pub}
	for _, c := range choices {
		q.Choices = append(q.Choices, models.Choice{ChoiceText: c})
	}
	require.NoError(t, e.db.Create(q).Error)
	return q
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
