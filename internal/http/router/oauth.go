package router

import (
	"cordfriend.app/server/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func OAuthRouter(rg *gin.RouterGroup, h *handler.OAuthHandler) {
	rg.GET("/login/:provider", h.Login)
	rg.GET("/callback/:provider", h.Callback)
}
