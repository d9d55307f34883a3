package router

import (
	"cordfriend.app/server/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func AccountRouter(rg *gin.RouterGroup, h *handler.AccountHandler, requireSession, throttle gin.HandlerFunc) {
	rg.POST("/login/", throttle, h.Login)
	rg.POST("/signup/", throttle, h.Signup)
	rg.POST("/logout/", h.Logout)

	rg.GET("/verify-auth/", requireSession, h.VerifyAuth)

	user := rg.Group("/user", requireSession)
	user.GET("/get/", h.Get)
	user.PUT("/edit/", h.Edit)
	user.DELETE("/delete/", h.Delete)
}
