package api

import (
	"fmt"
	"net/http"
	"testing"

	"pollblog-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatedPostOperationsRequireLogin(t *testing.T) {
	env := setupTestEnvironment(t, nil)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{method: http.MethodGet, path: "/api/posts/drafts"},
		{method: http.MethodPost, path: "/api/posts", body: PostForm{Title: "t", Text: "x"}},
		{method: http.MethodPut, path: "/api/posts/1", body: PostForm{Title: "t", Text: "x"}},
		{method: http.MethodPost, path: "/api/posts/1/publish"},
		{method: http.MethodDelete, path: "/api/posts/1"},
		{method: http.MethodPost, path: "/api/comments/1/approve"},
		{method: http.MethodDelete, path: "/api/comments/1"},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := env.do(tc.method, tc.path, "", tc.body)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, LoginURL, decode[ErrorResponse](t, w).LoginURL)

			w = env.do(tc.method, tc.path, "not-a-token", tc.body)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestPostLifecycle(t *testing.T) {
	env := setupTestEnvironment(t, nil)
	token := env.userToken

	w := env.do(http.MethodPost, "/api/posts", token, PostForm{Title: "<b>Hello</b>", Text: "<p>World</p><script>x()</script>"})
	require.Equal(t, http.StatusCreated, w.Code)
	post := decode[models.Post](t, w)
	assert.Equal(t, "Hello", post.Title)
	assert.NotContains(t, post.Text, "script")
	assert.True(t, post.IsDraft())
	postPath := fmt.Sprintf("/api/posts/%d", post.ID)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, postPath, "", nil).Code, "drafts are hidden from visitors")
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, postPath, token, nil).Code)

	drafts := decode[map[string][]models.Post](t, env.do(http.MethodGet, "/api/posts/drafts", token, nil))
	assert.Len(t, drafts["posts"], 1)

	published := decode[map[string][]models.Post](t, env.do(http.MethodGet, "/api/posts", "", nil))
	assert.Empty(t, published["posts"])

	w = env.do(http.MethodPost, postPath+"/publish", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.Post](t, w).IsDraft())

	published = decode[map[string][]models.Post](t, env.do(http.MethodGet, "/api/posts", "", nil))
	require.Len(t, published["posts"], 1)
	assert.Equal(t, "writer", published["posts"][0].Author.Username)

	w = env.do(http.MethodPost, postPath+"/comments", "", CommentForm{Author: "ann", Text: "Nice"})
	require.Equal(t, http.StatusCreated, w.Code)
	comment := decode[models.Comment](t, w)
	assert.False(t, comment.ApprovedComment)

	visible := decode[models.Post](t, env.do(http.MethodGet, postPath, "", nil))
	assert.Empty(t, visible.Comments, "unapproved comments are hidden from visitors")
	assert.Len(t, decode[models.Post](t, env.do(http.MethodGet, postPath, token, nil)).Comments, 1)

	commentPath := fmt.Sprintf("/api/comments/%d", comment.ID)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, commentPath+"/approve", token, nil).Code)
	visible = decode[models.Post](t, env.do(http.MethodGet, postPath, "", nil))
	assert.Len(t, visible.Comments, 1)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, commentPath, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, commentPath, token, nil).Code)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, postPath, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, postPath, token, nil).Code)
}

func TestEditPostWithPublish(t *testing.T) {
	env := setupTestEnvironment(t, nil)
	token := env.userToken

	post := decode[models.Post](t, env.do(http.MethodPost, "/api/posts", token, PostForm{Title: "Draft", Text: "Body"}))
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	w := env.do(http.MethodPut, path, token, PostForm{Title: "Edited", Text: "Body"})
	require.Equal(t, http.StatusOK, w.Code)
	edited := decode[models.Post](t, w)
	assert.Equal(t, "Edited", edited.Title)
	assert.True(t, edited.IsDraft())

	w = env.do(http.MethodPut, path, token, PostForm{Title: "Edited", Text: "Body", Publish: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.Post](t, w).IsDraft())

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, path, token, map[string]string{"title": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, "/api/posts/9999", token, PostForm{Title: "a", Text: "b"}).Code)
}

func TestAddCommentValidation(t *testing.T) {
	env := setupTestEnvironment(t, nil)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/posts/9999/comments", "", CommentForm{Author: "a", Text: "b"}).Code)

	post := decode[models.Post](t, env.do(http.MethodPost, "/api/posts", env.userToken, PostForm{Title: "T", Text: "B"}))
	path := fmt.Sprintf("/api/posts/%d/comments", post.ID)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, path, "", map[string]string{"author": "a"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, path, "", CommentForm{Author: "<b></b>", Text: "b"}).Code)
}
