package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/kelimeoyunu/internal/api/apierr"
	"github.com/mcoot/kelimeoyunu/internal/api/middleware"
	"github.com/mcoot/kelimeoyunu/internal/api/request"
	"github.com/mcoot/kelimeoyunu/internal/api/response"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/profile"
	"github.com/mcoot/kelimeoyunu/internal/services/room"
	"github.com/mcoot/kelimeoyunu/internal/ws"
)

// RoomHandler handles two-player room endpoints
type RoomHandler struct {
	rooms    *room.Manager
	profiles *profile.Service
	sockets  *ws.Handler
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *room.Manager, profiles *profile.Service, sockets *ws.Handler) *RoomHandler {
	return &RoomHandler{
		rooms:    rooms,
		profiles: profiles,
		sockets:  sockets,
	}
}

// seatFor builds the room seat of a user from their profile
func (h *RoomHandler) seatFor(ctx context.Context, userID model.UserID) (model.RoomPlayer, error) {
	user, err := h.profiles.Get(ctx, userID)
	if err != nil {
		return model.RoomPlayer{}, err
	}
	return model.RoomPlayer{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
	}, nil
}

func roomID(r *http.Request) model.RoomID {
	return model.RoomID(mux.Vars(r)["id"])
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Allow empty body for a default points room
		req = request.CreateRoomRequest{}
	}
	mode := model.RoomMode(req.Mode)
	if mode == "" {
		mode = model.RoomModePoints
	}
	param := req.MaxPoints
	if mode == model.RoomModeTimed {
		param = req.TimeLimit
	}

	host, err := h.seatFor(r.Context(), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	created, err := h.rooms.Create(r.Context(), host, mode, param)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, created)
}

// Join handles POST /api/v1/rooms/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Room code is required"))
		return
	}

	player, err := h.seatFor(r.Context(), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	code := model.RoomCode(strings.ToUpper(strings.TrimSpace(req.Code)))
	joined, err := h.rooms.Join(r.Context(), code, player)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, joined)
}

// Match handles POST /api/v1/rooms/match
func (h *RoomHandler) Match(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	player, err := h.seatFor(r.Context(), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	matched, err := h.rooms.FindOrCreateMatch(r.Context(), player)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, matched)
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.rooms.Get(r.Context(), roomID(r))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, found)
}

// GetByCode handles GET /api/v1/rooms/code/{code}
func (h *RoomHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(strings.ToUpper(mux.Vars(r)["code"]))

	found, err := h.rooms.GetByCode(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, found)
}

// Ready handles POST /api/v1/rooms/{id}/ready
func (h *RoomHandler) Ready(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.ReadyRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	ready := req.Ready == nil || *req.Ready

	updated, err := h.rooms.SetReady(r.Context(), roomID(r), userID, ready)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, updated)
}

// UpdateWord handles PUT /api/v1/rooms/{id}/word
func (h *RoomHandler) UpdateWord(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.WordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return
	}

	updated, err := h.rooms.UpdateCurrentWord(r.Context(), roomID(r), userID, req.Word)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, updated)
}

// Submit handles POST /api/v1/rooms/{id}/words
func (h *RoomHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.WordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return
	}

	// Short or blank words score as invalid rather than failing the request
	validation, updated, err := h.rooms.SubmitWord(r.Context(), roomID(r), userID, req.Word)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SubmitResponse{
		Validation: validation,
		Room:       updated,
	})
}

// Timeout handles POST /api/v1/rooms/{id}/timeout
func (h *RoomHandler) Timeout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	id := roomID(r)

	found, err := h.rooms.Get(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if found.GetPlayer(userID) == nil {
		apierr.WriteError(w, model.ErrNotInRoom)
		return
	}

	ended, err := h.rooms.EndByTimeout(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, ended)
}

// Invite handles POST /api/v1/rooms/{id}/invite
func (h *RoomHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("userId is required"))
		return
	}

	if err := h.rooms.Invite(r.Context(), roomID(r), userID, model.UserID(req.UserID)); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Socket handles GET /api/v1/rooms/{id}/ws
func (h *RoomHandler) Socket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	h.sockets.ServeRoom(w, r, roomID(r), userID)
}
