package bot

// Strategy defines how a bot plays a tournament match
type Strategy interface {
	// MatchScore returns the points the bot finishes a match with
	MatchScore() int
}
