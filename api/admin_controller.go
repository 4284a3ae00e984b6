package api

import (
	"io"
	"log/slog"
	"net/http"

	"pollblog-backend/admin"
	"pollblog-backend/cache"
	"pollblog-backend/handlers"
	"pollblog-backend/repository"
	"pollblog-backend/service"

	"github.com/gin-gonic/gin"
)

// Reserved query keys of a changelist. Every other key is a filter.
const (
	searchParam = "q"
	orderParam  = "o"
	pageParam   = "p"
)

// DefaultPurgePatterns are the keys dropped by a cache purge without a body.
var DefaultPurgePatterns = []string{repository.PostCacheKeyPattern}

type AdminController struct {
	site   *admin.Site
	redis  cache.RedisClient
	logger *slog.Logger
}

// NewAdminController builds the back-office API. redis may be nil.
func NewAdminController(site *admin.Site, redis cache.RedisClient, logger *slog.Logger) *AdminController {
	return &AdminController{site: site, redis: redis, logger: logger.With("component", "admin_api")}
}

type CleanupCacheInput struct {
	Patterns []string `json:"patterns"`
}

func (ac *AdminController) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/admin")
	{
		group.GET("", ac.Index)
		group.POST("/cache/clean", ac.CleanupRedisCache)
		group.GET("/:model", ac.List)
		group.POST("/:model", ac.Create)
		group.GET("/:model/:id", ac.Get)
		group.PUT("/:model/:id", ac.Update)
		group.DELETE("/:model/:id", ac.Delete)
	}
}

func (ac *AdminController) Index(c *gin.Context) {
	models, err := ac.site.Index(handlers.CallerFrom(c))
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

func (ac *AdminController) List(c *gin.Context) {
	page, err := ParsePage(c.Query(pageParam))
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	params := admin.ListParams{
		Search:  c.Query(searchParam),
		Order:   c.Query(orderParam),
		Page:    page,
		Filters: map[string]string{},
	}
	for key, values := range c.Request.URL.Query() {
		if key == searchParam || key == orderParam || key == pageParam || len(values) == 0 {
			continue
		}
		params.Filters[key] = values[0]
	}

	result, err := ac.site.List(c.Request.Context(), handlers.CallerFrom(c), c.Param("model"), params)
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ac *AdminController) Get(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	obj, err := ac.site.Get(c.Request.Context(), handlers.CallerFrom(c), c.Param("model"), id)
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, obj)
}

func (ac *AdminController) Create(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	obj, err := ac.site.Create(c.Request.Context(), handlers.CallerFrom(c), c.Param("model"), body)
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusCreated, obj)
}

func (ac *AdminController) Update(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	obj, err := ac.site.Update(c.Request.Context(), handlers.CallerFrom(c), c.Param("model"), id, body)
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, obj)
}

func (ac *AdminController) Delete(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	if err := ac.site.Delete(c.Request.Context(), handlers.CallerFrom(c), c.Param("model"), id); err != nil {
		writeError(c, ac.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CleanupRedisCache deletes cached keys matching the requested patterns.
func (ac *AdminController) CleanupRedisCache(c *gin.Context) {
	if err := service.RequireStaff(handlers.CallerFrom(c)); err != nil {
		writeError(c, ac.logger, err)
		return
	}

	var input CleanupCacheInput
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &input); err != nil {
			writeError(c, ac.logger, err)
			return
		}
	}
	if len(input.Patterns) == 0 {
		input.Patterns = DefaultPurgePatterns
	}

	deleted, err := cache.Purge(c.Request.Context(), ac.redis, input.Patterns)
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	ac.logger.Info("cache purged", "patterns", input.Patterns, "deleted", deleted)
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "patterns": input.Patterns})
}
