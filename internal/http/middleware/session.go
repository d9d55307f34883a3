package middleware

import (
	"net/http"

	"cordfriend.app/server/common/logger"
	"cordfriend.app/server/common/metrics"
	"cordfriend.app/server/internal/auth"
	"cordfriend.app/server/internal/http/dto"
	"cordfriend.app/server/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName = "auth_token"
	claimsContextKey  = "session_claims"
)

// RequireSession rejects requests without a valid auth_token cookie. On
// success the claims are available through Claims and AccountID.
func RequireSession(sessions service.SessionService, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			m.SessionRejected("missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewError("Access token required.", nil))
			return
		}

		claims, err := sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			status, body := dto.FromServiceError(err)
			if status == http.StatusInternalServerError {
				_ = c.Error(err)
			}
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Set(claimsContextKey, claims)
		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{AccountID: logger.Ptr(claims.AccountID)})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func Claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// AccountID returns the authenticated account id, or 0 outside RequireSession.
func AccountID(c *gin.Context) int64 {
	if claims := Claims(c); claims != nil {
		return claims.AccountID
	}
	return 0
}
