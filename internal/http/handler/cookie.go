package handler

import (
	"net/http"
	"time"

	"cordfriend.app/server/internal/http/middleware"
	"github.com/gin-gonic/gin"
)

const (
	stateCookieName = "cordfriend_oauth_state"
	stateMaxAge     = 600
)

// CookieConfig controls the attributes of the cookies the API sets. In
// production the client is served from another origin, so cookies must be
// Secure with SameSite=None.
type CookieConfig struct {
	IsProduction bool
	MaxAge       time.Duration
}

func (cc CookieConfig) sameSite() http.SameSite {
	if cc.IsProduction {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (cc CookieConfig) set(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   cc.IsProduction,
		HttpOnly: true,
		SameSite: cc.sameSite(),
	})
}

func (cc CookieConfig) setSession(c *gin.Context, token string) {
	cc.set(c, middleware.SessionCookieName, token, int(cc.MaxAge.Seconds()))
}

func (cc CookieConfig) clearSession(c *gin.Context) {
	cc.set(c, middleware.SessionCookieName, "", -1)
}

func (cc CookieConfig) setState(c *gin.Context, state string) {
	cc.set(c, stateCookieName, state, stateMaxAge)
}

func (cc CookieConfig) clearState(c *gin.Context) {
	cc.set(c, stateCookieName, "", -1)
}
