package model

import "time"

// UserID uniquely identifies a user across the system
type UserID string

// AuthProvider records how a user signed in
type AuthProvider string

const (
	ProviderGoogle   AuthProvider = "google"
	ProviderFacebook AuthProvider = "facebook"
	ProviderEmail    AuthProvider = "email"
)

// MaxLives is the size of a user's life pool
const MaxLives = 5

// User is the persistent profile of a player
type User struct {
	ID          UserID       `json:"id"`
	Email       string       `json:"email"`
	DisplayName string       `json:"displayName"`
	PhotoURL    string       `json:"photoUrl,omitempty"`
	Provider    AuthProvider `json:"provider"`

	// Life economy
	Lives                int        `json:"lives"`
	LastLifeRegeneration time.Time  `json:"lastLifeRegeneration"`
	PremiumUntil         *time.Time `json:"premiumUntil,omitempty"`

	// Stats only ever grow
	TotalScore     int     `json:"totalScore"`
	GamesWon       int     `json:"gamesWon"`
	TournamentsWon int     `json:"tournamentsWon"`
	WordsFound     int     `json:"wordsFound"`
	Badges         []Badge `json:"badges"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPremium reports whether the premium window is open at now
func (u *User) HasPremium(now time.Time) bool {
	return u.PremiumUntil != nil && u.PremiumUntil.After(now)
}

// HasBadge reports whether the badge with the given id is unlocked
func (u *User) HasBadge(id BadgeID) bool {
	for _, b := range u.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// Credential holds email login data.
// Stored separately from the profile so the hash never leaves the store with it.
type Credential struct {
	UserID       UserID    `json:"userId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LifeSource identifies where an extra life came from
type LifeSource string

const (
	LifeSourceAd       LifeSource = "ad"
	LifeSourcePurchase LifeSource = "purchase"
	LifeSourceReward   LifeSource = "reward"
)

// Valid reports whether s is a known source
func (s LifeSource) Valid() bool {
	switch s {
	case LifeSourceAd, LifeSourcePurchase, LifeSourceReward:
		return true
	}
	return false
}
