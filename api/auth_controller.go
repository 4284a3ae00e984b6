package api

import (
	"log/slog"
	"net/http"

	"pollblog-backend/handlers"
	"pollblog-backend/service"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAuthController(accounts *service.AccountService, logger *slog.Logger) *AuthController {
	return &AuthController{accounts: accounts, logger: logger.With("component", "auth_api")}
}

type LoginForm struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", ac.Login)
		auth.GET("/me", ac.Me)
	}
}

func (ac *AuthController) Login(c *gin.Context) {
	var form LoginForm
	if err := bindJSON(c, &form); err != nil {
		writeError(c, ac.logger, err)
		return
	}
	result, err := ac.accounts.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		writeError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Me echoes the caller of the bearer token.
func (ac *AuthController) Me(c *gin.Context) {
	caller := handlers.CallerFrom(c)
	if err := service.RequireAuthenticated(caller); err != nil {
		writeError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, caller)
}
