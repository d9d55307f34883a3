package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"cordfriend.app/server/internal/service"
	"github.com/gin-gonic/gin"
)

type OAuthHandler struct {
	oauthService service.OAuthService
	cookies      CookieConfig
	clientURL    string
}

func NewOAuthHandler(oauthService service.OAuthService, cookies CookieConfig, clientURL string) *OAuthHandler {
	return &OAuthHandler{oauthService: oauthService, cookies: cookies, clientURL: clientURL}
}

func (h *OAuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	state, err := generateState()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate state", "error", err)
		h.redirectError(c, "login_failed")
		return
	}

	authURL, err := h.oauthService.AuthorizationURL(c.Param("provider"), state)
	if err != nil {
		slog.WarnContext(ctx, "failed to get authorization URL", "provider", c.Param("provider"), "error", err)
		if errors.Is(err, service.ErrNotFound) {
			h.redirectError(c, "unknown_provider")
			return
		}
		h.redirectError(c, "login_failed")
		return
	}

	h.cookies.setState(c, state)
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (h *OAuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()
	provider := c.Param("provider")

	if errorParam := c.Query("error"); errorParam != "" {
		slog.WarnContext(ctx, "OAuth error", "provider", provider, "error", errorParam, "description", c.Query("error_description"))
		h.redirectError(c, errorParam)
		return
	}

	storedState, err := c.Cookie(stateCookieName)
	if err != nil || storedState == "" || subtle.ConstantTimeCompare([]byte(c.Query("state")), []byte(storedState)) != 1 {
		slog.WarnContext(ctx, "state mismatch", "provider", provider)
		h.redirectError(c, "invalid_state")
		return
	}
	h.cookies.clearState(c)

	session, err := h.oauthService.Callback(ctx, provider, c.Query("code"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to handle callback", "provider", provider, "error", err)
		switch {
		case errors.Is(err, service.ErrConflict):
			h.redirectError(c, "email_in_use")
		case errors.Is(err, service.ErrUnauthorized):
			h.redirectError(c, "unverified_email")
		case errors.Is(err, service.ErrValidation):
			h.redirectError(c, "no_code")
		default:
			h.redirectError(c, "callback_failed")
		}
		return
	}

	h.cookies.setSession(c, session.Token)
	slog.InfoContext(ctx, "account logged in", "account_id", session.Account.ID, "provider", provider)

	c.Redirect(http.StatusTemporaryRedirect, h.clientURL+"/dashboard")
}

func (h *OAuthHandler) redirectError(c *gin.Context, code string) {
	c.Redirect(http.StatusTemporaryRedirect, h.clientURL+"/login?auth_error="+url.QueryEscape(code))
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
