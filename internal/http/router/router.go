package router

import (
	"cordfriend.app/server/common/metrics"
	"cordfriend.app/server/internal/http/handler"
	"cordfriend.app/server/internal/http/middleware"
	"cordfriend.app/server/internal/ratelimit"
	"cordfriend.app/server/internal/service"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	ClientURL   string
	Cookies     handler.CookieConfig
	DB          handler.Pinger
	Metrics     *metrics.Metrics
	AuthLimiter ratelimit.Limiter
}

// Services is the slice of the service layer the routes need. *service.Services
// satisfies it.
type Services interface {
	Sessions() service.SessionService
	Accounts() service.AccountService
	Bots() service.BotService
	Images() service.ImageService
	OAuth() service.OAuthService
}

func SetupRoutes(router *gin.Engine, services Services, cfg RouterConfig) {
	healthHandler := handler.NewHealthHandler(cfg.DB)
	router.GET("/health", healthHandler.Check)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	requireSession := middleware.RequireSession(services.Sessions(), cfg.Metrics)

	limiter := cfg.AuthLimiter
	if limiter == nil {
		limiter = ratelimit.Noop()
	}
	throttle := middleware.RateLimit(limiter)

	api := router.Group("/api")
	{
		accountHandler := handler.NewAccountHandler(services.Accounts(), cfg.Cookies)
		AccountRouter(api, accountHandler, requireSession, throttle)

		botHandler := handler.NewBotHandler(services.Bots())
		imageHandler := handler.NewImageHandler(services.Images())
		BotRouter(api.Group("/bot"), botHandler, imageHandler, requireSession)

		oauthHandler := handler.NewOAuthHandler(services.OAuth(), cfg.Cookies, cfg.ClientURL)
		OAuthRouter(api.Group("/oauth2"), oauthHandler)
	}
}
