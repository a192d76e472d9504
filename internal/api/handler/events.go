package handler

import (
	"net/http"
	"strings"

	"github.com/mcoot/kelimeoyunu/internal/api/apierr"
	"github.com/mcoot/kelimeoyunu/internal/api/middleware"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/sse"
)

// EventsHandler streams change-feed topics over SSE
type EventsHandler struct {
	hubManager *sse.HubManager
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hubManager *sse.HubManager) *EventsHandler {
	return &EventsHandler{
		hubManager: hubManager,
	}
}

// Stream handles GET /api/v1/events?topic=...
// Without a topic the caller's own user topic is streamed. Room and
// tournament topics are public; user topics are private to their owner.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = model.UserTopic(userID)
	}

	switch {
	case strings.HasPrefix(topic, "room:"), strings.HasPrefix(topic, "tournament:"):
	case strings.HasPrefix(topic, "user:"):
		if topic != model.UserTopic(userID) {
			apierr.WriteError(w, apierr.NewForbiddenError("Cannot subscribe to another user's events"))
			return
		}
	default:
		apierr.WriteError(w, apierr.NewInvalidRequestError("Unknown topic"))
		return
	}

	hub, err := h.hubManager.GetOrCreateHub(topic)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	sse.ServeSSE(w, r, hub, userID)
}
