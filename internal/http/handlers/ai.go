package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sprintsync/internal/ai"
)

type AIHandler struct {
	svc *ai.Service
}

func NewAIHandler(svc *ai.Service) *AIHandler {
	return &AIHandler{svc: svc}
}

func (h *AIHandler) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.svc.Status(ctx.Request.Context()))
}

// SuggestDescription never fails once the body validates; backend problems
// come back as the fallback suggestion.
func (h *AIHandler) SuggestDescription(ctx *gin.Context) {
	var req ai.DescriptionRequest
	if !BindJSON(ctx, &req) {
		return
	}

	ctx.JSON(http.StatusOK, h.svc.SuggestDescription(ctx.Request.Context(), req))
}

func (h *AIHandler) SuggestTitles(ctx *gin.Context) {
	var req ai.TitleRequest
	if !BindJSON(ctx, &req) {
		return
	}

	ctx.JSON(http.StatusOK, h.svc.SuggestTitles(ctx.Request.Context(), req))
}
