package model

import "time"

// RoomID uniquely identifies a game room
type RoomID string

// RoomCode is the short human-readable code used to join a room
type RoomCode string

// RoomMode selects the win condition of a room
type RoomMode string

const (
	RoomModePoints RoomMode = "points" // First to MaxPoints wins
	RoomModeTimed  RoomMode = "timed"  // Highest score after TimeLimit wins
)

// Valid reports whether m is a known mode
func (m RoomMode) Valid() bool {
	return m == RoomModePoints || m == RoomModeTimed
}

// RoomStatus is the lifecycle phase of a room
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusFinished RoomStatus = "finished"
)

const (
	// MaxRoomPlayers is the seat count of a room
	MaxRoomPlayers = 2

	DefaultMaxPoints = 100
	DefaultTimeLimit = 120 // seconds
)

// RoomPlayer is a user's seat in a room
type RoomPlayer struct {
	UserID         UserID   `json:"userId"`
	DisplayName    string   `json:"displayName"`
	PhotoURL       string   `json:"photoUrl,omitempty"`
	Score          int      `json:"score"`
	Ready          bool     `json:"ready"`
	CurrentWord    string   `json:"currentWord"`
	WordsSubmitted []string `json:"wordsSubmitted"`
}

// HasSubmitted reports whether word is already on the player's list
func (p *RoomPlayer) HasSubmitted(word string) bool {
	for _, w := range p.WordsSubmitted {
		if w == word {
			return true
		}
	}
	return false
}

// GameRoom is a two-player match
type GameRoom struct {
	ID           RoomID       `json:"id"`
	Code         RoomCode     `json:"code"`
	Mode         RoomMode     `json:"mode"`
	MaxPoints    int          `json:"maxPoints"`
	TimeLimit    int          `json:"timeLimit"`
	Players      []RoomPlayer `json:"players"`
	CurrentRound int          `json:"currentRound"`
	Status       RoomStatus   `json:"status"`
	Winner       *UserID      `json:"winner,omitempty"`
	Draw         bool         `json:"draw,omitempty"`
	Board        Board        `json:"board"`
	CreatedAt    time.Time    `json:"createdAt"`
	StartedAt    *time.Time   `json:"startedAt,omitempty"`
	FinishedAt   *time.Time   `json:"finishedAt,omitempty"`
}

// GetPlayer returns the seat of the given user, or nil if not seated
func (r *GameRoom) GetPlayer(userID UserID) *RoomPlayer {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return &r.Players[i]
		}
	}
	return nil
}

// IsFull reports whether every seat is taken
func (r *GameRoom) IsFull() bool {
	return len(r.Players) >= MaxRoomPlayers
}

// AllReady reports whether the room is full and every player is ready
func (r *GameRoom) AllReady() bool {
	if !r.IsFull() {
		return false
	}
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// Deadline returns when a timed room runs out, or false if not applicable
func (r *GameRoom) Deadline() (time.Time, bool) {
	if r.Mode != RoomModeTimed || r.StartedAt == nil {
		return time.Time{}, false
	}
	return r.StartedAt.Add(time.Duration(r.TimeLimit) * time.Second), true
}

// WordValidation is the outcome of scoring a submitted word
type WordValidation struct {
	Word       string `json:"word"`
	IsValid    bool   `json:"isValid"`
	Points     int    `json:"points"`
	Definition string `json:"definition,omitempty"`
}

// RoomFilter narrows a room listing
type RoomFilter struct {
	Status *RoomStatus
}
