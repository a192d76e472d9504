package storage

import (
	"context"

	"github.com/mcoot/kelimeoyunu/internal/model"
)

// UserStore persists profiles and email credentials
type UserStore interface {
	// SaveUser inserts or replaces the profile
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)

	SaveCredential(ctx context.Context, cred *model.Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error)
}

// GameStore persists rooms, tournaments and the lexicon.
// Saves are whole-record upserts; callers serialize writers per entity.
type GameStore interface {
	// Room operations
	SaveRoom(ctx context.Context, room *model.GameRoom) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.GameRoom, error)
	GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.GameRoom, error)
	RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error)
	// ListRooms returns matching rooms in creation order
	ListRooms(ctx context.Context, filter model.RoomFilter) ([]*model.GameRoom, error)

	// Tournament operations
	SaveTournament(ctx context.Context, t *model.Tournament) error
	GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error)
	// ListTournaments returns matching tournaments in creation order
	ListTournaments(ctx context.Context, filter model.TournamentFilter) ([]*model.Tournament, error)

	// Dictionary operations
	GetDictionaryWords(ctx context.Context) ([]string, error)
	SaveDictionaryWords(ctx context.Context, words []string) error
}

// PreferenceStore is a per-user string key/value store
type PreferenceStore interface {
	// GetPreference returns model.ErrPreferenceNotFound when the key is unset
	GetPreference(ctx context.Context, userID model.UserID, key string) (string, error)
	SetPreference(ctx context.Context, userID model.UserID, key, value string) error
	RemovePreference(ctx context.Context, userID model.UserID, key string) error
	// UsersWithPreference returns, sorted, the users whose key holds value
	UsersWithPreference(ctx context.Context, key, value string) ([]model.UserID, error)
}

// Storage is the full persistence surface
type Storage interface {
	UserStore
	GameStore
	PreferenceStore
}

// Composite assembles a Storage from separately configured backends,
// e.g. postgres users, redis games and sqlite preferences
type Composite struct {
	UserStore
	GameStore
	PreferenceStore
}

var _ Storage = Composite{}

// MatchesRoom reports whether the room passes the filter
func MatchesRoom(f model.RoomFilter, r *model.GameRoom) bool {
	return f.Status == nil || r.Status == *f.Status
}

// MatchesTournament reports whether the tournament passes the filter
func MatchesTournament(f model.TournamentFilter, t *model.Tournament) bool {
	return f.Status == nil || t.Status == *f.Status
}
