package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/kelimeoyunu/internal/api/apierr"
	"github.com/mcoot/kelimeoyunu/internal/api/middleware"
	"github.com/mcoot/kelimeoyunu/internal/api/request"
	"github.com/mcoot/kelimeoyunu/internal/api/response"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/profile"
	"github.com/mcoot/kelimeoyunu/internal/services/tournament"
)

// TournamentHandler handles bracket endpoints
type TournamentHandler struct {
	tournaments *tournament.Manager
	profiles    *profile.Service
}

// NewTournamentHandler creates a new tournament handler
func NewTournamentHandler(tournaments *tournament.Manager, profiles *profile.Service) *TournamentHandler {
	return &TournamentHandler{
		tournaments: tournaments,
		profiles:    profiles,
	}
}

func (h *TournamentHandler) entrantFor(ctx context.Context, userID model.UserID) (model.TournamentPlayer, error) {
	user, err := h.profiles.Get(ctx, userID)
	if err != nil {
		return model.TournamentPlayer{}, err
	}
	return model.TournamentPlayer{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
	}, nil
}

func tournamentID(r *http.Request) model.TournamentID {
	return model.TournamentID(mux.Vars(r)["id"])
}

// Create handles POST /api/v1/tournaments
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	host, err := h.entrantFor(r.Context(), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	created, err := h.tournaments.Create(r.Context(), host)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, created)
}

// Match handles POST /api/v1/tournaments/match
func (h *TournamentHandler) Match(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	player, err := h.entrantFor(r.Context(), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	found, err := h.tournaments.FindOrCreate(r.Context(), player)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, found)
}

// Get handles GET /api/v1/tournaments/{id}
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.tournaments.Get(r.Context(), tournamentID(r))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, found)
}

// Join handles POST /api/v1/tournaments/{id}/join
func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	player, err := h.entrantFor(r.Context(), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	joined, err := h.tournaments.Join(r.Context(), tournamentID(r), player)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, joined)
}

// Start handles POST /api/v1/tournaments/{id}/start
func (h *TournamentHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	started, err := h.tournaments.Start(r.Context(), tournamentID(r), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, started)
}

// Disband handles POST /api/v1/tournaments/{id}/disband
func (h *TournamentHandler) Disband(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	disbanded, err := h.tournaments.Disband(r.Context(), tournamentID(r), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, disbanded)
}

// Report handles POST /api/v1/tournaments/{id}/matches/{match_id}/result
func (h *TournamentHandler) Report(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	matchID := model.MatchID(mux.Vars(r)["match_id"])

	var req request.ReportResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return
	}
	if req.Score < 0 {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Score must not be negative"))
		return
	}

	updated, err := h.tournaments.ReportMatchResult(r.Context(), tournamentID(r), matchID, userID, req.Score)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, updated)
}
