package handler

import (
	"log/slog"
	"net/http"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/internal/http/dto"
	"cordfriend.app/server/internal/http/middleware"
	"cordfriend.app/server/internal/service"
	"github.com/gin-gonic/gin"
)

type BotHandler struct {
	botService service.BotService
}

func NewBotHandler(botService service.BotService) *BotHandler {
	return &BotHandler{botService: botService}
}

func (h *BotHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.BotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	bot, err := h.botService.Create(ctx, middleware.AccountID(c), req.ToInput())
	if err != nil {
		respondError(c, "create bot", err)
		return
	}

	slog.InfoContext(ctx, "bot created", "bot_id", bot.ID)
	c.JSON(http.StatusCreated, dto.CreateBotResponse{
		Message: "Bot successfully created and added to your account.",
		BotID:   id.Format(bot.ID),
	})
}

func (h *BotHandler) List(c *gin.Context) {
	list, err := h.botService.List(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		respondError(c, "list bots", err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBotListResponse(list))
}

func (h *BotHandler) Get(c *gin.Context) {
	view, err := h.botService.Get(c.Request.Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		respondError(c, "get bot", err)
		return
	}

	c.JSON(http.StatusOK, dto.GetBotResponse{Bot: dto.ToBotResponse(view)})
}

func (h *BotHandler) Edit(c *gin.Context) {
	var req dto.BotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.botService.Edit(c.Request.Context(), middleware.AccountID(c), c.Param("id"), req.ToInput()); err != nil {
		respondError(c, "edit bot", err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Bot successfully updated."})
}

func (h *BotHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.DeleteBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.botService.Delete(ctx, middleware.AccountID(c), req.ID, req.ImageID)
	if err != nil {
		respondError(c, "delete bot", err)
		return
	}

	if len(result.Warnings) > 0 {
		slog.WarnContext(ctx, "bot deleted with warnings", "warnings", result.Warnings)
	}
	c.JSON(http.StatusOK, dto.DeleteBotResponse{
		Message:        "Bot deleted successfully.",
		DeletionResult: *result,
	})
}
