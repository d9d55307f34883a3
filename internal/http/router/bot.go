package router

import (
	"cordfriend.app/server/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func BotRouter(rg *gin.RouterGroup, h *handler.BotHandler, images *handler.ImageHandler, requireSession gin.HandlerFunc) {
	// Downloads are public so Discord can fetch avatars.
	rg.GET("/image-download/:id", images.Download)

	authed := rg.Group("", requireSession)
	authed.POST("/create/", h.Create)
	authed.GET("/get/all/", h.List)
	authed.GET("/get/:id", h.Get)
	authed.PUT("/edit/:id", h.Edit)
	authed.DELETE("/delete/", h.Delete)
	authed.POST("/image-upload/", images.Upload)
}
