package lives

import (
	"time"

	"github.com/mcoot/kelimeoyunu/internal/model"
)

const (
	// MaxLives is the size of the life pool
	MaxLives = model.MaxLives

	// RegenerationInterval is how long one life takes to come back
	RegenerationInterval = 30 * time.Minute

	// DailyGameLimit caps games started per calendar day
	DailyGameLimit = 50
)

// Reasons shown to the user when play is refused
const (
	ReasonNoLives    = "Oyun oynamak için canın olması gerekiyor!"
	ReasonDailyLimit = "Bugünkü oyun limitine ulaştın."
)

// Eligibility is the outcome of a can-play check
type Eligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Regenerate credits every whole interval elapsed since the anchor.
// The anchor moves by whole intervals only, so the remainder carries over.
// Calling it again with the same now changes nothing.
func Regenerate(u model.User, now time.Time) model.User {
	if u.Lives >= MaxLives {
		return u
	}
	elapsed := now.Sub(u.LastLifeRegeneration)
	units := int(elapsed / RegenerationInterval)
	if units <= 0 {
		return u
	}
	u.Lives = min(u.Lives+units, MaxLives)
	u.LastLifeRegeneration = u.LastLifeRegeneration.Add(time.Duration(units) * RegenerationInterval)
	return u
}

// Consume spends one life. It is a no-op at zero lives.
// Spending from a full pool restarts the regeneration clock at now.
func Consume(u model.User, now time.Time) model.User {
	if u.Lives <= 0 {
		return u
	}
	if u.Lives >= MaxLives {
		u.LastLifeRegeneration = now
	}
	u.Lives--
	return u
}

// AddLife grants one life, capped at MaxLives. The source is bookkeeping only.
func AddLife(u model.User, _ model.LifeSource) model.User {
	u.Lives = min(u.Lives+1, MaxLives)
	return u
}

// TimeUntilNextLife is zero for a full pool
func TimeUntilNextLife(u model.User, now time.Time) time.Duration {
	if u.Lives >= MaxLives {
		return 0
	}
	elapsed := now.Sub(u.LastLifeRegeneration)
	if elapsed < 0 {
		elapsed = 0
	}
	return max(RegenerationInterval-elapsed%RegenerationInterval, 0)
}

// TimeUntilFull is zero for a full pool
func TimeUntilFull(u model.User, now time.Time) time.Duration {
	if u.Lives >= MaxLives {
		return 0
	}
	needed := MaxLives - u.Lives
	return TimeUntilNextLife(u, now) + time.Duration(needed-1)*RegenerationInterval
}

// CanPlay allows play with a life in hand or an open premium window
func CanPlay(u model.User, now time.Time) Eligibility {
	if u.Lives > 0 || u.HasPremium(now) {
		return Eligibility{Allowed: true}
	}
	return Eligibility{Reason: ReasonNoLives}
}
