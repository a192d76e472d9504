package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/kelimeoyunu/internal/api/apierr"
	"github.com/mcoot/kelimeoyunu/internal/api/middleware"
	"github.com/mcoot/kelimeoyunu/internal/api/request"
	"github.com/mcoot/kelimeoyunu/internal/api/response"
	"github.com/mcoot/kelimeoyunu/internal/services/notification"
	"github.com/mcoot/kelimeoyunu/internal/services/profile"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

// ProfileHandler handles the signed-in user's profile and preferences
type ProfileHandler struct {
	profiles *profile.Service
	prefs    storage.PreferenceStore
	notifier *notification.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *profile.Service, prefs storage.PreferenceStore, notifier *notification.Service) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		prefs:    prefs,
		notifier: notifier,
	}
}

// GetMe handles GET /api/v1/me
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	user, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}

// UpdateMe handles PATCH /api/v1/me
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), userID, req.DisplayName, req.PhotoURL)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}

// GetPreference handles GET /api/v1/me/preferences/{key}
func (h *ProfileHandler) GetPreference(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	key := mux.Vars(r)["key"]

	value, err := h.prefs.GetPreference(r.Context(), userID, key)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Preference{Key: key, Value: value})
}

// SetPreference handles PUT /api/v1/me/preferences/{key}.
// The notification opt-in goes through the scheduler so reminders follow it.
func (h *ProfileHandler) SetPreference(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	key := mux.Vars(r)["key"]

	var req request.SetPreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
		return
	}

	var err error
	if key == notification.PrefEnabled {
		err = h.notifier.SetEnabled(r.Context(), userID, req.Value == "true")
		if req.Value != "true" {
			req.Value = "false"
		}
	} else {
		err = h.prefs.SetPreference(r.Context(), userID, key, req.Value)
	}
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Preference{Key: key, Value: req.Value})
}
