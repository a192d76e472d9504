package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Room events
	EventRoomCreated   EventType = "room_created"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerReady   EventType = "player_ready"
	EventGameStarted   EventType = "game_started"
	EventCurrentWord   EventType = "current_word"
	EventWordSubmitted EventType = "word_submitted"
	EventGameFinished  EventType = "game_finished"

	// Tournament events
	EventTournamentUpdated   EventType = "tournament_updated"
	EventTournamentStarted   EventType = "tournament_started"
	EventRoundStarted        EventType = "round_started"
	EventMatchCompleted      EventType = "match_completed"
	EventTournamentCompleted EventType = "tournament_completed"
	EventTournamentCancelled EventType = "tournament_cancelled"

	// User events
	EventLivesChanged EventType = "lives_changed"
	EventNotification EventType = "notification"
)

// Event is the envelope carried on the change feed
type Event struct {
	Type      EventType `json:"type"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"` // Type-specific data
}

// RoomTopic is the feed topic for a room
func RoomTopic(id RoomID) string { return "room:" + string(id) }

// TournamentTopic is the feed topic for a tournament
func TournamentTopic(id TournamentID) string { return "tournament:" + string(id) }

// UserTopic is the feed topic for a user's private events
func UserTopic(id UserID) string { return "user:" + string(id) }

// WordSubmittedPayload contains data for word submitted events
type WordSubmittedPayload struct {
	UserID     UserID         `json:"userId"`
	Validation WordValidation `json:"validation"`
	Score      int            `json:"score"`
}

// CurrentWordPayload contains data for current word events
type CurrentWordPayload struct {
	UserID UserID `json:"userId"`
	Word   string `json:"word"`
}

// GameFinishedPayload contains data for game finished events
type GameFinishedPayload struct {
	Winner *UserID        `json:"winner,omitempty"` // nil on a draw
	Scores map[UserID]int `json:"scores"`
}

// LivesChangedPayload contains data for lives changed events
type LivesChangedPayload struct {
	Lives             int   `json:"lives"`
	NextLifeInSeconds int64 `json:"nextLifeInSeconds"`
	FullInSeconds     int64 `json:"fullInSeconds"`
}

// MatchCompletedPayload contains data for match completed events
type MatchCompletedPayload struct {
	Round int   `json:"round"`
	Match Match `json:"match"`
}

// NotificationPayload contains data for notification events
type NotificationPayload struct {
	Label string            `json:"label"`
	Type  string            `json:"type"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}
