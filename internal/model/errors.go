package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrOAuthDisabled      = errors.New("oauth provider not configured")
	ErrOAuthFailed        = errors.New("oauth sign-in failed")

	// Life errors
	ErrCannotPlay        = errors.New("player cannot start a game")
	ErrInvalidLifeSource = errors.New("invalid life source")

	// Room errors
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrRoomNotWaiting = errors.New("room is not accepting players")
	ErrRoomNotPlaying = errors.New("room is not in play")
	ErrRoomFinished   = errors.New("room has already finished")
	ErrNotInRoom      = errors.New("player is not in room")
	ErrNotTimedRoom   = errors.New("room is not timed")
	ErrRoomNotExpired = errors.New("room time has not run out")
	ErrInvalidMode    = errors.New("invalid room mode")

	// Tournament errors
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrTournamentFull       = errors.New("tournament is full")
	ErrTournamentNotWaiting = errors.New("tournament is not accepting players")
	ErrTournamentNotRunning = errors.New("tournament is not in progress")
	ErrNotInTournament      = errors.New("player is not in tournament")
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchCompleted       = errors.New("match is already completed")
	ErrAlreadyReported      = errors.New("result already reported")
	ErrPlayerEliminated     = errors.New("player has been eliminated")
	ErrNotHost              = errors.New("player is not the host")

	// Preference errors
	ErrPreferenceNotFound = errors.New("preference not found")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")
)

// PlayBlockedError explains why a user may not start a game.
// It matches ErrCannotPlay with errors.Is.
type PlayBlockedError struct {
	Reason string
}

func (e *PlayBlockedError) Error() string {
	return "cannot play: " + e.Reason
}

func (e *PlayBlockedError) Is(target error) bool {
	return target == ErrCannotPlay
}
