package api

import (
	"log/slog"
	"net/http"
	"time"

	"pollblog-backend/handlers"
	"pollblog-backend/service"

	"github.com/gin-gonic/gin"
)

type BlogController struct {
	blog   *service.BlogService
	now    func() time.Time
	logger *slog.Logger
}

func NewBlogController(blog *service.BlogService, logger *slog.Logger) *BlogController {
	return &BlogController{
		blog:   blog,
		now:    time.Now,
		logger: logger.With("component", "blog_api"),
	}
}

// PostForm is the body of post creation and editing. Publish mirrors the
// publish button of the edit form.
type PostForm struct {
	Title   string `json:"title" binding:"required"`
	Text    string `json:"text" binding:"required"`
	Publish bool   `json:"publish"`
}

type CommentForm struct {
	Author string `json:"author" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// RegisterRoutes registers post and comment endpoints. commentMiddleware runs
// only on comment submission.
func (bc *BlogController) RegisterRoutes(router gin.IRouter, commentMiddleware ...gin.HandlerFunc) {
	posts := router.Group("/posts")
	{
		posts.GET("", bc.ListPublished)
		posts.GET("/drafts", bc.ListDrafts)
		posts.GET("/:id", bc.GetPost)
		posts.POST("", bc.CreatePost)
		posts.PUT("/:id", bc.EditPost)
		posts.POST("/:id/publish", bc.PublishPost)
		posts.DELETE("/:id", bc.DeletePost)
		posts.POST("/:id/comments", append(commentMiddleware, bc.AddComment)...)
	}

	comments := router.Group("/comments")
	{
		comments.POST("/:id/approve", bc.ApproveComment)
		comments.DELETE("/:id", bc.DeleteComment)
	}
}

func (bc *BlogController) ListPublished(c *gin.Context) {
	posts, err := bc.blog.ListPublished(c.Request.Context(), bc.now())
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (bc *BlogController) ListDrafts(c *gin.Context) {
	posts, err := bc.blog.ListDrafts(c.Request.Context(), handlers.CallerFrom(c))
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (bc *BlogController) GetPost(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	post, err := bc.blog.GetPost(c.Request.Context(), handlers.CallerFrom(c), id)
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (bc *BlogController) CreatePost(c *gin.Context) {
	caller := handlers.CallerFrom(c)
	if err := service.RequireAuthenticated(caller); err != nil {
		writeError(c, bc.logger, err)
		return
	}
	var form PostForm
	if err := bindJSON(c, &form); err != nil {
		writeError(c, bc.logger, err)
		return
	}

	post, err := bc.blog.CreatePost(c.Request.Context(), caller, form.Title, form.Text)
	if err == nil && form.Publish {
		post, err = bc.blog.PublishPost(c.Request.Context(), caller, post.ID)
	}
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (bc *BlogController) EditPost(c *gin.Context) {
	caller := handlers.CallerFrom(c)
	if err := service.RequireAuthenticated(caller); err != nil {
		writeError(c, bc.logger, err)
		return
	}
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	var form PostForm
	if err := bindJSON(c, &form); err != nil {
		writeError(c, bc.logger, err)
		return
	}

	post, err := bc.blog.EditPost(c.Request.Context(), caller, id, form.Title, form.Text)
	if err == nil && form.Publish {
		post, err = bc.blog.PublishPost(c.Request.Context(), caller, id)
	}
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (bc *BlogController) PublishPost(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	post, err := bc.blog.PublishPost(c.Request.Context(), handlers.CallerFrom(c), id)
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (bc *BlogController) DeletePost(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	if err := bc.blog.DeletePost(c.Request.Context(), handlers.CallerFrom(c), id); err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddComment is open to anonymous visitors.
func (bc *BlogController) AddComment(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	var form CommentForm
	if err := bindJSON(c, &form); err != nil {
		writeError(c, bc.logger, err)
		return
	}

	comment, err := bc.blog.AddComment(c.Request.Context(), id, form.Author, form.Text)
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.Header("Location", "/api/posts/"+c.Param("id"))
	c.JSON(http.StatusCreated, comment)
}

func (bc *BlogController) ApproveComment(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	comment, err := bc.blog.ApproveComment(c.Request.Context(), handlers.CallerFrom(c), id)
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (bc *BlogController) DeleteComment(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, bc.logger, err)
		return
	}
	if err := bc.blog.DeleteComment(c.Request.Context(), handlers.CallerFrom(c), id); err != nil {
		writeError(c, bc.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
