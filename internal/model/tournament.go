package model

import "time"

// TournamentID uniquely identifies a tournament
type TournamentID string

// MatchID identifies a match within a tournament
type MatchID string

// TournamentStatus is the lifecycle phase of a tournament
type TournamentStatus string

const (
	TournamentStatusWaiting    TournamentStatus = "waiting"
	TournamentStatusInProgress TournamentStatus = "in-progress"
	TournamentStatusCompleted  TournamentStatus = "completed"
	TournamentStatusCancelled  TournamentStatus = "cancelled" // Disbanded by the host before start
)

// MatchStatus is the lifecycle phase of a match
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusPlaying   MatchStatus = "playing"
	MatchStatusCompleted MatchStatus = "completed"
)

const (
	// TournamentSize is the participant count of a bracket
	TournamentSize = 8

	// TournamentFillWait is how long a tournament waits for humans before bots fill it
	TournamentFillWait = 30 * time.Second
)

// TournamentPlayer is a participant in a bracket
type TournamentPlayer struct {
	UserID       UserID `json:"userId"`
	DisplayName  string `json:"displayName"`
	IsBot        bool   `json:"isBot"`
	CurrentRound int    `json:"currentRound"`
	Eliminated   bool   `json:"eliminated"`
}

// Match pairs two participants within a round
type Match struct {
	ID        MatchID     `json:"id"`
	Player1   UserID      `json:"player1"`
	Player2   UserID      `json:"player2"`
	Winner    *UserID     `json:"winner,omitempty"`
	Score1    int         `json:"score1"`
	Score2    int         `json:"score2"`
	Reported1 bool        `json:"reported1"`
	Reported2 bool        `json:"reported2"`
	Status    MatchStatus `json:"status"`
}

// HasPlayer reports whether the user takes part in the match
func (m *Match) HasPlayer(userID UserID) bool {
	return m.Player1 == userID || m.Player2 == userID
}

// TournamentRound is one level of the bracket
type TournamentRound struct {
	RoundNumber int     `json:"roundNumber"`
	Matches     []Match `json:"matches"`
}

// IsComplete reports whether every match in the round has a winner
func (r *TournamentRound) IsComplete() bool {
	for _, m := range r.Matches {
		if m.Status != MatchStatusCompleted {
			return false
		}
	}
	return true
}

// Tournament is an 8-slot single-elimination bracket
type Tournament struct {
	ID           TournamentID       `json:"id"`
	HostID       UserID             `json:"hostId"`
	Players      []TournamentPlayer `json:"players"`
	Rounds       []TournamentRound  `json:"rounds"`
	Status       TournamentStatus   `json:"status"`
	Winner       *UserID            `json:"winner,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	FillDeadline time.Time          `json:"fillDeadline"`
	StartedAt    *time.Time         `json:"startedAt,omitempty"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
}

// GetPlayer returns the participant with the given id, or nil if absent
func (t *Tournament) GetPlayer(userID UserID) *TournamentPlayer {
	for i := range t.Players {
		if t.Players[i].UserID == userID {
			return &t.Players[i]
		}
	}
	return nil
}

// CurrentRound returns the latest round, or nil before the bracket starts
func (t *Tournament) CurrentRound() *TournamentRound {
	if len(t.Rounds) == 0 {
		return nil
	}
	return &t.Rounds[len(t.Rounds)-1]
}

// FindMatch locates a match in the current round
func (t *Tournament) FindMatch(id MatchID) *Match {
	round := t.CurrentRound()
	if round == nil {
		return nil
	}
	for i := range round.Matches {
		if round.Matches[i].ID == id {
			return &round.Matches[i]
		}
	}
	return nil
}

// IsFull reports whether every slot is taken
func (t *Tournament) IsFull() bool {
	return len(t.Players) >= TournamentSize
}

// TournamentFilter narrows a tournament listing
type TournamentFilter struct {
	Status *TournamentStatus
}
