package model

import "time"

// BadgeID identifies an achievement
type BadgeID string

const (
	BadgeFastTyper        BadgeID = "fast_typer"
	BadgeWordMaster       BadgeID = "word_master"
	BadgeTournamentWinner BadgeID = "tournament_winner"
	BadgeStreakMaster     BadgeID = "streak_master"
	BadgeSocialPlayer     BadgeID = "social_player"
	BadgeHighScorer       BadgeID = "high_scorer"
)

// Badge is an unlocked achievement on a user's profile
type Badge struct {
	ID          BadgeID   `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// BadgeCatalog lists every badge that can appear on a profile
var BadgeCatalog = map[BadgeID]Badge{
	BadgeFastTyper:        {ID: BadgeFastTyper, Name: "Hızlı Yazıcı", Description: "1 dakikada 10 kelime yaz", Icon: "⚡"},
	BadgeWordMaster:       {ID: BadgeWordMaster, Name: "Kelime Ustası", Description: "100 geçerli kelime yaz", Icon: "📚"},
	BadgeTournamentWinner: {ID: BadgeTournamentWinner, Name: "Turnuva Şampiyonu", Description: "İlk turnuva şampiyonluğun", Icon: "🏆"},
	BadgeStreakMaster:     {ID: BadgeStreakMaster, Name: "Seri Ustası", Description: "5 maç üst üste kazan", Icon: "🔥"},
	BadgeSocialPlayer:     {ID: BadgeSocialPlayer, Name: "Sosyal Oyuncu", Description: "10 farklı kişiyle oyna", Icon: "👥"},
	BadgeHighScorer:       {ID: BadgeHighScorer, Name: "Yüksek Puanlı", Description: "Tek maçta 150 puan al", Icon: "🎯"},
}
