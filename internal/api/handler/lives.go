package handler

import (
	"net/http"

	"github.com/mcoot/kelimeoyunu/internal/api/apierr"
	"github.com/mcoot/kelimeoyunu/internal/api/middleware"
	"github.com/mcoot/kelimeoyunu/internal/api/response"
	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/services/lives"
)

// LivesHandler handles the life pool endpoints
type LivesHandler struct {
	lives *lives.Service
	clock clock.Clock
}

// NewLivesHandler creates a new lives handler
func NewLivesHandler(livesService *lives.Service, clk clock.Clock) *LivesHandler {
	return &LivesHandler{
		lives: livesService,
		clock: clk,
	}
}

// Status handles GET /api/v1/me/lives
func (h *LivesHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	status, err := h.lives.Status(r.Context(), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LivesStatusFromService(status))
}

// AdReward handles POST /api/v1/me/lives/ad-reward
func (h *LivesHandler) AdReward(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	user, err := h.lives.RewardAd(r.Context(), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AdRewardResponse{
		Lives:         user.Lives,
		AdRewardCount: h.lives.AdRewardCount(r.Context(), userID),
	})
}

// Daily handles GET /api/v1/me/lives/daily
func (h *LivesHandler) Daily(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	limit, err := h.lives.CheckDailyLimit(r.Context(), userID, h.clock.Now())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, limit)
}
