package handler

import (
	"net/http"
	"strconv"

	"github.com/gdugdh24/swipematch/internal/delivery/http/middleware"
	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gdugdh24/swipematch/internal/usecase/swipe"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SwipeHandler struct {
	swipeUseCase *swipe.SwipeUseCase
}

func NewSwipeHandler(swipeUseCase *swipe.SwipeUseCase) *SwipeHandler {
	return &SwipeHandler{swipeUseCase: swipeUseCase}
}

// CreateSwipe handles POST /swipes
// @Summary Like or pass on a user
// @Tags swipe
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body swipe.SwipeRequest true "Swipe"
// @Success 200 {object} swipe.SwipeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /swipes [post]
func (h *SwipeHandler) CreateSwipe(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req swipe.SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.swipeUseCase.CreateSwipe(c.Request.Context(), userID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetPairState handles GET /swipes/:user_id
// @Summary Both directions of the caller's relationship with a user
// @Tags swipe
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "Other user ID"
// @Success 200 {object} domain.PairState
// @Failure 400 {object} ErrorResponse
// @Router /swipes/{user_id} [get]
func (h *SwipeHandler) GetPairState(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	otherID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		writeError(c, domain.ErrInvalidUserID)
		return
	}

	state, err := h.swipeUseCase.GetPairState(c.Request.Context(), userID, otherID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"outgoing":  state.Outgoing,
		"incoming":  state.Incoming,
		"connected": state.Connected(),
	})
}

// GetMatches handles GET /matches
// @Summary The caller's matches, newest first
// @Tags match
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {array} swipe.MatchResponse
// @Router /matches [get]
func (h *SwipeHandler) GetMatches(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, offset = swipe.NormalizePaging(limit, offset)

	matches, err := h.swipeUseCase.GetMatches(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"limit":   limit,
		"offset":  offset,
	})
}
