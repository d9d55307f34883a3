package handler

import (
	"log/slog"
	"net/http"

	"cordfriend.app/server/internal/http/dto"
	"cordfriend.app/server/internal/http/middleware"
	"cordfriend.app/server/internal/service"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountService service.AccountService
	cookies        CookieConfig
}

func NewAccountHandler(accountService service.AccountService, cookies CookieConfig) *AccountHandler {
	return &AccountHandler{accountService: accountService, cookies: cookies}
}

// VerifyAuth only runs behind RequireSession, so reaching it means the
// session is valid.
func (h *AccountHandler) VerifyAuth(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.accountService.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, "login", err)
		return
	}

	h.cookies.setSession(c, session.Token)
	slog.InfoContext(ctx, "account logged in", "account_id", session.Account.ID)

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "You have successfully logged in, redirecting..."})
}

func (h *AccountHandler) Signup(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.accountService.Signup(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, "signup", err)
		return
	}

	slog.InfoContext(ctx, "account created", "account_id", account.ID)
	c.JSON(http.StatusCreated, dto.MessageResponse{Message: "You have successfully signed up!"})
}

// Logout revokes every token of the account when the cookie still verifies.
// The cookie is cleared regardless.
func (h *AccountHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	if token, err := c.Cookie(middleware.SessionCookieName); err == nil && token != "" {
		if err := h.accountService.Logout(ctx, token); err != nil {
			slog.WarnContext(ctx, "failed to revoke session tokens", "error", err)
		}
	}

	h.cookies.clearSession(c)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Logged out successfully"})
}

func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.accountService.Get(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		respondError(c, "get account", err)
		return
	}

	c.JSON(http.StatusOK, dto.GetAccountResponse{
		Message: "User fetch successful.",
		User:    dto.ToAccountResponse(account),
	})
}

func (h *AccountHandler) Edit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.EditAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	err := h.accountService.Edit(ctx, middleware.AccountID(c), service.EditAccountInput{
		Email:       req.Email,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		respondError(c, "edit account", err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "User updated successfully."})
}

func (h *AccountHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.AccountID(c)

	if err := h.accountService.Delete(ctx, accountID); err != nil {
		respondError(c, "delete account", err)
		return
	}

	h.cookies.clearSession(c)
	slog.InfoContext(ctx, "account deleted", "account_id", accountID)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "User deleted successfully."})
}
