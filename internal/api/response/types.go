package response

import (
	"time"

	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/auth"
	"github.com/mcoot/kelimeoyunu/internal/services/lives"
)

// User represents a profile in API responses
type User struct {
	ID                   string        `json:"id"`
	Email                string        `json:"email,omitempty"`
	DisplayName          string        `json:"displayName"`
	PhotoURL             string        `json:"photoUrl,omitempty"`
	Provider             string        `json:"provider"`
	Lives                int           `json:"lives"`
	LastLifeRegeneration time.Time     `json:"lastLifeRegeneration"`
	PremiumUntil         *time.Time    `json:"premiumUntil,omitempty"`
	TotalScore           int           `json:"totalScore"`
	GamesWon             int           `json:"gamesWon"`
	TournamentsWon       int           `json:"tournamentsWon"`
	WordsFound           int           `json:"wordsFound"`
	Badges               []model.Badge `json:"badges"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	badges := u.Badges
	if badges == nil {
		badges = []model.Badge{}
	}
	return User{
		ID:                   string(u.ID),
		Email:                u.Email,
		DisplayName:          u.DisplayName,
		PhotoURL:             u.PhotoURL,
		Provider:             string(u.Provider),
		Lives:                u.Lives,
		LastLifeRegeneration: u.LastLifeRegeneration,
		PremiumUntil:         u.PremiumUntil,
		TotalScore:           u.TotalScore,
		GamesWon:             u.GamesWon,
		TournamentsWon:       u.TournamentsWon,
		WordsFound:           u.WordsFound,
		Badges:               badges,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Created   bool      `json:"created"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:      UserFromModel(s.User),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		Created:   s.Created,
	}
}

// LivesStatus is a user's life pool with countdowns in whole seconds
type LivesStatus struct {
	Lives             int              `json:"lives"`
	MaxLives          int              `json:"maxLives"`
	NextLifeInSeconds int64            `json:"nextLifeInSeconds"`
	FullInSeconds     int64            `json:"fullInSeconds"`
	PremiumUntil      *time.Time       `json:"premiumUntil,omitempty"`
	CanPlay           bool             `json:"canPlay"`
	Reason            string           `json:"reason,omitempty"`
	Daily             lives.DailyLimit `json:"daily"`
}

// LivesStatusFromService converts a lives.Status
func LivesStatusFromService(s *lives.Status) LivesStatus {
	return LivesStatus{
		Lives:             s.Lives,
		MaxLives:          s.MaxLives,
		NextLifeInSeconds: int64(s.NextLifeIn.Seconds()),
		FullInSeconds:     int64(s.FullIn.Seconds()),
		PremiumUntil:      s.PremiumUntil,
		CanPlay:           s.Eligibility.Allowed,
		Reason:            s.Eligibility.Reason,
		Daily:             s.Daily,
	}
}

// AdRewardResponse is returned after an ad reward is credited
type AdRewardResponse struct {
	Lives         int `json:"lives"`
	AdRewardCount int `json:"adRewardCount"`
}

// Preference is a single stored user preference
type Preference struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SubmitResponse is the outcome of a word submission
type SubmitResponse struct {
	Validation model.WordValidation `json:"validation"`
	Room       *model.GameRoom      `json:"room"`
}

// OAuthStartResponse is returned to clients that cannot follow redirects
type OAuthStartResponse struct {
	URL string `json:"url"`
}

// Health is the body of the health endpoint
type Health struct {
	Status     string `json:"status"`
	Dictionary int    `json:"dictionaryWords"`
}
