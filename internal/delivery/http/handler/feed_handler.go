package handler

import (
	"net/http"
	"strconv"

	"github.com/gdugdh24/swipematch/internal/delivery/http/middleware"
	"github.com/gdugdh24/swipematch/internal/usecase/feed"
	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feedUseCase *feed.FeedUseCase
}

func NewFeedHandler(feedUseCase *feed.FeedUseCase) *FeedHandler {
	return &FeedHandler{feedUseCase: feedUseCase}
}

// GetNext handles GET /feed/next
// @Summary Users the caller has not decided on yet
// @Tags feed
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Limit"
// @Success 200 {array} feed.FeedUserResponse
// @Router /feed/next [get]
func (h *FeedHandler) GetNext(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(feed.DefaultLimit)))

	candidates, err := h.feedUseCase.NextCandidates(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}
