package notification

import (
	"fmt"
	"time"

	"github.com/mcoot/kelimeoyunu/internal/model"
)

// Labels identify a pending notification per user. Scheduling a label again
// replaces the pending one.
const (
	LabelLives           = "lives_notification"
	LabelDailyReminder   = "daily_reminder"
	LabelTournamentStart = "tournament_start"
	LabelGameInvite      = "game_invite"
)

// PrefEnabled is the preference key gating all scheduling
const PrefEnabled = "notifications_enabled"

// Notification is a message to deliver to one user
type Notification struct {
	UserID model.UserID
	Label  string
	Type   string
	Title  string
	Body   string
	Data   map[string]string
}

// Payload renders the notification for the feed
func (n Notification) Payload() model.NotificationPayload {
	return model.NotificationPayload{
		Label: n.Label,
		Type:  n.Type,
		Title: n.Title,
		Body:  n.Body,
		Data:  n.Data,
	}
}

// DailyAt is a wall-clock time repeated every day
type DailyAt struct {
	Hour   int
	Minute int
}

// Next returns the first occurrence strictly after now, in now's location
func (d DailyAt) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), d.Hour, d.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// DailyReminderAt is when the daily reminder goes out
var DailyReminderAt = DailyAt{Hour: 19, Minute: 0}

// LivesFull tells the user their pool has refilled
func LivesFull() Notification {
	return Notification{
		Label: LabelLives,
		Type:  "lives_full",
		Title: "💖 Canların Yenilendi!",
		Body:  "Tüm canların doldu! Oyuna devam edebilirsin.",
	}
}

// DailyReminder nudges the user to play
func DailyReminder() Notification {
	return Notification{
		Label: LabelDailyReminder,
		Type:  "daily_reminder",
		Title: "📝 Kelime Oyunu Seni Bekliyor!",
		Body:  "Bugün henüz oyun oynamadın. Kelime becerilerini test et!",
	}
}

// TournamentStart announces a bracket has begun
func TournamentStart(id model.TournamentID) Notification {
	return Notification{
		Label: LabelTournamentStart,
		Type:  "tournament_start",
		Title: "🏆 Turnuva Başlıyor!",
		Body:  "Turnuvan başladı! Hemen katıl ve şampiyonluğa oyna.",
		Data:  map[string]string{"tournamentId": string(id)},
	}
}

// GameInvite invites the user into a room
func GameInvite(playerName string, code model.RoomCode) Notification {
	return Notification{
		Label: LabelGameInvite,
		Type:  "game_invite",
		Title: "🎮 Oyun Daveti!",
		Body:  fmt.Sprintf("%s seni oyuna davet etti!", playerName),
		Data:  map[string]string{"roomCode": string(code)},
	}
}
