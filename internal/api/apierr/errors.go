package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/kelimeoyunu/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeEmailExists          = "EMAIL_EXISTS"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeInvalidEmail         = "INVALID_EMAIL"
	CodeWeakPassword         = "WEAK_PASSWORD"
	CodeOAuthDisabled        = "OAUTH_DISABLED"
	CodeOAuthFailed          = "OAUTH_FAILED"
	CodeCannotPlay           = "CANNOT_PLAY"
	CodeInvalidLifeSource    = "INVALID_LIFE_SOURCE"
	CodeRoomNotFound         = "ROOM_NOT_FOUND"
	CodeRoomFull             = "ROOM_FULL"
	CodeRoomNotWaiting       = "ROOM_NOT_WAITING"
	CodeRoomNotPlaying       = "ROOM_NOT_PLAYING"
	CodeRoomFinished         = "ROOM_FINISHED"
	CodeNotInRoom            = "NOT_IN_ROOM"
	CodeNotTimedRoom         = "NOT_TIMED_ROOM"
	CodeRoomNotExpired       = "ROOM_NOT_EXPIRED"
	CodeInvalidMode          = "INVALID_MODE"
	CodeTournamentNotFound   = "TOURNAMENT_NOT_FOUND"
	CodeTournamentFull       = "TOURNAMENT_FULL"
	CodeTournamentNotWaiting = "TOURNAMENT_NOT_WAITING"
	CodeTournamentNotRunning = "TOURNAMENT_NOT_RUNNING"
	CodeNotInTournament      = "NOT_IN_TOURNAMENT"
	CodeMatchNotFound        = "MATCH_NOT_FOUND"
	CodeMatchCompleted       = "MATCH_COMPLETED"
	CodeAlreadyReported      = "ALREADY_REPORTED"
	CodePlayerEliminated     = "PLAYER_ELIMINATED"
	CodeNotHost              = "NOT_HOST"
	CodePreferenceNotFound   = "PREFERENCE_NOT_FOUND"
	CodeDictionaryNotLoaded  = "DICTIONARY_NOT_LOADED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// From returns the API error body an error maps to
func From(err error) APIError {
	return toHTTPError(err).apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Blocked play carries a user-facing reason
	var blocked *model.PlayBlockedError
	if errors.As(err, &blocked) {
		return &httpError{http.StatusForbidden, APIError{CodeCannotPlay, blocked.Reason}}
	}

	switch {
	// User and identity errors
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrEmailExists):
		return &httpError{http.StatusConflict, APIError{CodeEmailExists, "Email is already registered"}}
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid email or password"}}
	case errors.Is(err, model.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired token"}}
	case errors.Is(err, model.ErrInvalidEmail):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidEmail, "Invalid email address"}}
	case errors.Is(err, model.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeWeakPassword, "Password must be at least 6 characters"}}
	case errors.Is(err, model.ErrOAuthDisabled):
		return &httpError{http.StatusNotImplemented, APIError{CodeOAuthDisabled, "Google sign-in is not configured"}}
	case errors.Is(err, model.ErrOAuthFailed):
		return &httpError{http.StatusUnauthorized, APIError{CodeOAuthFailed, "Google sign-in failed"}}

	// Life errors
	case errors.Is(err, model.ErrCannotPlay):
		return &httpError{http.StatusForbidden, APIError{CodeCannotPlay, "Cannot start a game"}}
	case errors.Is(err, model.ErrInvalidLifeSource):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidLifeSource, "Invalid life source"}}

	// Room errors
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrRoomFull):
		return &httpError{http.StatusConflict, APIError{CodeRoomFull, "Room is full"}}
	case errors.Is(err, model.ErrRoomNotWaiting):
		return &httpError{http.StatusConflict, APIError{CodeRoomNotWaiting, "Room is not accepting players"}}
	case errors.Is(err, model.ErrRoomNotPlaying):
		return &httpError{http.StatusConflict, APIError{CodeRoomNotPlaying, "Room is not in play"}}
	case errors.Is(err, model.ErrRoomFinished):
		return &httpError{http.StatusConflict, APIError{CodeRoomFinished, "Room has already finished"}}
	case errors.Is(err, model.ErrNotInRoom):
		return &httpError{http.StatusForbidden, APIError{CodeNotInRoom, "Not a player in this room"}}
	case errors.Is(err, model.ErrNotTimedRoom):
		return &httpError{http.StatusConflict, APIError{CodeNotTimedRoom, "Room is not timed"}}
	case errors.Is(err, model.ErrRoomNotExpired):
		return &httpError{http.StatusConflict, APIError{CodeRoomNotExpired, "Room time has not run out"}}
	case errors.Is(err, model.ErrInvalidMode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidMode, "Mode must be points or timed"}}

	// Tournament errors
	case errors.Is(err, model.ErrTournamentNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeTournamentNotFound, "Tournament not found"}}
	case errors.Is(err, model.ErrTournamentFull):
		return &httpError{http.StatusConflict, APIError{CodeTournamentFull, "Tournament is full"}}
	case errors.Is(err, model.ErrTournamentNotWaiting):
		return &httpError{http.StatusConflict, APIError{CodeTournamentNotWaiting, "Tournament is not accepting players"}}
	case errors.Is(err, model.ErrTournamentNotRunning):
		return &httpError{http.StatusConflict, APIError{CodeTournamentNotRunning, "Tournament is not in progress"}}
	case errors.Is(err, model.ErrNotInTournament):
		return &httpError{http.StatusForbidden, APIError{CodeNotInTournament, "Not a participant in this tournament"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrMatchCompleted):
		return &httpError{http.StatusConflict, APIError{CodeMatchCompleted, "Match is already completed"}}
	case errors.Is(err, model.ErrAlreadyReported):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyReported, "Result already reported"}}
	case errors.Is(err, model.ErrPlayerEliminated):
		return &httpError{http.StatusForbidden, APIError{CodePlayerEliminated, "Player has been eliminated"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}

	// Misc
	case errors.Is(err, model.ErrPreferenceNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePreferenceNotFound, "Preference not found"}}
	case errors.Is(err, model.ErrDictionaryNotLoaded):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeDictionaryNotLoaded, "Dictionary not loaded"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInternalErrorRef is an internal error that quotes the request id,
// so a player's report can be matched to the server log
func NewInternalErrorRef(requestID string) error {
	if requestID == "" {
		return NewInternalError()
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error (request " + requestID + ")"}}
}
