package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case LivesStatus:
		o.printLivesStatus(v)
	case DailyLimit:
		fmt.Printf("Games today: %d/%d\n", v.Played, v.Max)
	case AdReward:
		fmt.Printf("Lives: %d (ads watched: %d)\n", v.Lives, v.AdRewardCount)
	case Preference:
		fmt.Printf("%s = %s\n", v.Key, v.Value)
	case Room:
		o.printRoom(v)
	case SubmitResult:
		o.printSubmitResult(v)
	case Tournament:
		o.printTournament(v)
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
		fmt.Printf("Dictionary: %d words\n", v.DictionaryWords)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID             string  `json:"id"`
	Email          string  `json:"email,omitempty"`
	DisplayName    string  `json:"displayName"`
	Provider       string  `json:"provider"`
	Lives          int     `json:"lives"`
	TotalScore     int     `json:"totalScore"`
	GamesWon       int     `json:"gamesWon"`
	TournamentsWon int     `json:"tournamentsWon"`
	WordsFound     int     `json:"wordsFound"`
	Badges         []Badge `json:"badges"`
}

// Badge response type
type Badge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// AuthResult combines the user and access token
type AuthResult struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Created   bool      `json:"created"`
}

// DailyLimit response type
type DailyLimit struct {
	WithinLimit bool `json:"withinLimit"`
	Played      int  `json:"played"`
	Max         int  `json:"max"`
}

// LivesStatus response type
type LivesStatus struct {
	Lives             int        `json:"lives"`
	MaxLives          int        `json:"maxLives"`
	NextLifeInSeconds int64      `json:"nextLifeInSeconds"`
	FullInSeconds     int64      `json:"fullInSeconds"`
	PremiumUntil      *time.Time `json:"premiumUntil,omitempty"`
	CanPlay           bool       `json:"canPlay"`
	Reason            string     `json:"reason,omitempty"`
	Daily             DailyLimit `json:"daily"`
}

// AdReward response type
type AdReward struct {
	Lives         int `json:"lives"`
	AdRewardCount int `json:"adRewardCount"`
}

// Preference response type
type Preference struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RoomPlayer response type
type RoomPlayer struct {
	UserID         string   `json:"userId"`
	DisplayName    string   `json:"displayName"`
	Score          int      `json:"score"`
	Ready          bool     `json:"ready"`
	CurrentWord    string   `json:"currentWord"`
	WordsSubmitted []string `json:"wordsSubmitted"`
}

// Room response type
type Room struct {
	ID        string       `json:"id"`
	Code      string       `json:"code"`
	Mode      string       `json:"mode"`
	MaxPoints int          `json:"maxPoints"`
	TimeLimit int          `json:"timeLimit"`
	Players   []RoomPlayer `json:"players"`
	Status    string       `json:"status"`
	Winner    *string      `json:"winner,omitempty"`
	Draw      bool         `json:"draw,omitempty"`
	Board     [][]string   `json:"board"`
	StartedAt *time.Time   `json:"startedAt,omitempty"`
}

// WordValidation response type
type WordValidation struct {
	Word       string `json:"word"`
	IsValid    bool   `json:"isValid"`
	Points     int    `json:"points"`
	Definition string `json:"definition,omitempty"`
}

// SubmitResult response type
type SubmitResult struct {
	Validation WordValidation `json:"validation"`
	Room       Room           `json:"room"`
}

// TournamentPlayer response type
type TournamentPlayer struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	IsBot       bool   `json:"isBot"`
	Eliminated  bool   `json:"eliminated"`
}

// Match response type
type Match struct {
	ID      string  `json:"id"`
	Player1 string  `json:"player1"`
	Player2 string  `json:"player2"`
	Winner  *string `json:"winner,omitempty"`
	Score1  int     `json:"score1"`
	Score2  int     `json:"score2"`
	Status  string  `json:"status"`
}

// TournamentRound response type
type TournamentRound struct {
	RoundNumber int     `json:"roundNumber"`
	Matches     []Match `json:"matches"`
}

// Tournament response type
type Tournament struct {
	ID           string             `json:"id"`
	HostID       string             `json:"hostId"`
	Players      []TournamentPlayer `json:"players"`
	Rounds       []TournamentRound  `json:"rounds"`
	Status       string             `json:"status"`
	Winner       *string            `json:"winner,omitempty"`
	FillDeadline time.Time          `json:"fillDeadline"`
}

// HealthResult response type
type HealthResult struct {
	Status          string `json:"status"`
	DictionaryWords int    `json:"dictionaryWords"`
}

func (o *Output) printUser(u User) {
	fmt.Printf("User: %s (%s)\n", u.DisplayName, u.ID)
	if u.Email != "" {
		fmt.Printf("Email: %s\n", u.Email)
	}
	fmt.Printf("Lives: %d\n", u.Lives)
	fmt.Printf("Score: %d  Wins: %d  Tournaments: %d  Words: %d\n",
		u.TotalScore, u.GamesWon, u.TournamentsWon, u.WordsFound)
	if len(u.Badges) > 0 {
		names := make([]string, len(u.Badges))
		for i, b := range u.Badges {
			names[i] = b.Icon + " " + b.Name
		}
		fmt.Printf("Badges: %s\n", strings.Join(names, ", "))
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	if a.Created {
		fmt.Println("Account created")
	}
	o.printUser(a.User)
	fmt.Printf("Token: %s\n", a.Token)
}

func (o *Output) printLivesStatus(l LivesStatus) {
	fmt.Printf("Lives: %d/%d\n", l.Lives, l.MaxLives)
	if l.NextLifeInSeconds > 0 {
		fmt.Printf("Next life in: %s\n", time.Duration(l.NextLifeInSeconds)*time.Second)
		fmt.Printf("Full in: %s\n", time.Duration(l.FullInSeconds)*time.Second)
	}
	if l.PremiumUntil != nil {
		fmt.Printf("Premium until: %s\n", l.PremiumUntil.Format(time.RFC3339))
	}
	if l.CanPlay {
		fmt.Println("Can play: yes")
	} else {
		fmt.Printf("Can play: no (%s)\n", l.Reason)
	}
	fmt.Printf("Games today: %d/%d\n", l.Daily.Played, l.Daily.Max)
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s (code %s)\n", r.ID, r.Code)
	fmt.Printf("Status: %s\n", r.Status)
	if r.Mode == "timed" {
		fmt.Printf("Mode: timed (%ds)\n", r.TimeLimit)
	} else {
		fmt.Printf("Mode: points (first to %d)\n", r.MaxPoints)
	}

	fmt.Printf("Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		readyStr := ""
		if p.Ready {
			readyStr = " [ready]"
		}
		fmt.Printf("  - %s (%s): %d pts%s\n", p.DisplayName, p.UserID, p.Score, readyStr)
		if len(p.WordsSubmitted) > 0 {
			fmt.Printf("    words: %s\n", strings.Join(p.WordsSubmitted, ", "))
		}
	}

	if len(r.Board) > 0 {
		fmt.Println()
		o.printBoard(r.Board)
	}

	switch {
	case r.Winner != nil:
		fmt.Printf("\nWinner: %s\n", *r.Winner)
	case r.Draw:
		fmt.Println("\nDraw")
	}
}

func (o *Output) printBoard(cells [][]string) {
	fmt.Print("   +")
	for range cells[0] {
		fmt.Print("---")
	}
	fmt.Println("+")

	for _, row := range cells {
		fmt.Print("   |")
		for _, cell := range row {
			fmt.Printf(" %s ", cell)
		}
		fmt.Println("|")
	}

	fmt.Print("   +")
	for range cells[0] {
		fmt.Print("---")
	}
	fmt.Println("+")
}

func (o *Output) printSubmitResult(s SubmitResult) {
	v := s.Validation
	if v.IsValid && v.Points > 0 {
		fmt.Printf("%s: +%d pts\n", v.Word, v.Points)
	} else if v.IsValid {
		fmt.Printf("%s: already played\n", v.Word)
	} else {
		fmt.Printf("%s: not a word\n", v.Word)
	}
	if s.Room.Status == "finished" {
		fmt.Println("Game complete!")
		if s.Room.Winner != nil {
			fmt.Printf("Winner: %s\n", *s.Room.Winner)
		}
	}
}

func (o *Output) printTournament(t Tournament) {
	fmt.Printf("Tournament: %s\n", t.ID)
	fmt.Printf("Status: %s\n", t.Status)
	if t.Status == "waiting" {
		fmt.Printf("Bots fill at: %s\n", t.FillDeadline.Format(time.RFC3339))
	}

	names := make(map[string]string, len(t.Players))
	fmt.Printf("Players (%d):\n", len(t.Players))
	for _, p := range t.Players {
		names[p.UserID] = p.DisplayName
		tags := ""
		if p.IsBot {
			tags += " [bot]"
		}
		if p.Eliminated {
			tags += " [out]"
		}
		fmt.Printf("  - %s (%s)%s\n", p.DisplayName, p.UserID, tags)
	}

	for _, round := range t.Rounds {
		fmt.Printf("\nRound %d:\n", round.RoundNumber)
		for _, m := range round.Matches {
			result := m.Status
			if m.Winner != nil {
				result = "won by " + names[*m.Winner]
			}
			fmt.Printf("  %s: %s %d - %d %s (%s)\n",
				m.ID, names[m.Player1], m.Score1, m.Score2, names[m.Player2], result)
		}
	}

	if t.Winner != nil {
		fmt.Printf("\nChampion: %s\n", names[*t.Winner])
	}
}
