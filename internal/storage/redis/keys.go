package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/kelimeoyunu/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "kelime"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// credentialKey returns the Redis key for an email credential.
// Emails are case-insensitive.
func credentialKey(email string) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, strings.ToLower(email))
}

// roomKey returns the Redis key for a GameRoom
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// roomCodeIndexKey returns the Redis key for the code -> room id index
func roomCodeIndexKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:idx:room_code:%s", keyPrefix, code)
}

// roomsIndexKey returns the Redis key for the ZSET of rooms scored by creation time
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

// tournamentKey returns the Redis key for a Tournament
func tournamentKey(id model.TournamentID) string {
	return fmt.Sprintf("%s:tournament:%s", keyPrefix, id)
}

// tournamentsIndexKey returns the Redis key for the ZSET of tournaments scored by creation time
func tournamentsIndexKey() string {
	return fmt.Sprintf("%s:idx:tournaments", keyPrefix)
}

// preferencesKey returns the Redis key for the HASH of a user's preferences
func preferencesKey(userID model.UserID) string {
	return fmt.Sprintf("%s:prefs:%s", keyPrefix, userID)
}

// dictionaryKey returns the Redis key for the dictionary word set
func dictionaryKey() string {
	return fmt.Sprintf("%s:dictionary", keyPrefix)
}
