package memory

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Records are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	users           map[model.UserID]*model.User
	credentials     map[string]*model.Credential
	rooms           map[model.RoomID]*model.GameRoom
	roomOrder       []model.RoomID
	codeIndex       map[model.RoomCode]model.RoomID
	tournaments     map[model.TournamentID]*model.Tournament
	tournamentOrder []model.TournamentID
	preferences     map[prefKey]string
	dictionaryWords []string
}

type prefKey struct {
	userID model.UserID
	key    string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:       make(map[model.UserID]*model.User),
		credentials: make(map[string]*model.Credential),
		rooms:       make(map[model.RoomID]*model.GameRoom),
		codeIndex:   make(map[model.RoomCode]model.RoomID),
		tournaments: make(map[model.TournamentID]*model.Tournament),
		preferences: make(map[prefKey]string),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func clone[T any](v *T) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	c, err := clone(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = c
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return clone(user)
}

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	c := *cred
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[strings.ToLower(cred.Email)] = &c
	return nil
}

func (s *Storage) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[strings.ToLower(email)]
	if !ok {
		return nil, model.ErrCredentialNotFound
	}
	c := *cred
	return &c, nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.GameRoom) error {
	c, err := clone(room)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; !ok {
		s.roomOrder = append(s.roomOrder, room.ID)
	}
	s.rooms[room.ID] = c
	s.codeIndex[room.Code] = room.ID
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.GameRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return clone(room)
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.GameRoom, error) {
	s.mu.RLock()
	id, ok := s.codeIndex[code]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return s.GetRoom(ctx, id)
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codeIndex[code]
	return ok, nil
}

func (s *Storage) ListRooms(ctx context.Context, filter model.RoomFilter) ([]*model.GameRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rooms []*model.GameRoom
	for _, id := range s.roomOrder {
		room := s.rooms[id]
		if !storage.MatchesRoom(filter, room) {
			continue
		}
		c, err := clone(room)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, c)
	}
	return rooms, nil
}

// Tournament operations

func (s *Storage) SaveTournament(ctx context.Context, t *model.Tournament) error {
	c, err := clone(t)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[t.ID]; !ok {
		s.tournamentOrder = append(s.tournamentOrder, t.ID)
	}
	s.tournaments[t.ID] = c
	return nil
}

func (s *Storage) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, model.ErrTournamentNotFound
	}
	return clone(t)
}

func (s *Storage) ListTournaments(ctx context.Context, filter model.TournamentFilter) ([]*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Tournament
	for _, id := range s.tournamentOrder {
		t := s.tournaments[id]
		if !storage.MatchesTournament(filter, t) {
			continue
		}
		c, err := clone(t)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Preference operations

func (s *Storage) GetPreference(ctx context.Context, userID model.UserID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.preferences[prefKey{userID, key}]
	if !ok {
		return "", model.ErrPreferenceNotFound
	}
	return v, nil
}

func (s *Storage) SetPreference(ctx context.Context, userID model.UserID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferences[prefKey{userID, key}] = value
	return nil
}

func (s *Storage) RemovePreference(ctx context.Context, userID model.UserID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.preferences, prefKey{userID, key})
	return nil
}

func (s *Storage) UsersWithPreference(ctx context.Context, key, value string) ([]model.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var users []model.UserID
	for k, v := range s.preferences {
		if k.key == key && v == value {
			users = append(users, k.userID)
		}
	}
	slices.Sort(users)
	return users, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dictionaryWords == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	result := make([]string, len(s.dictionaryWords))
	copy(result, s.dictionaryWords)
	return result, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaryWords = make([]string, len(words))
	copy(s.dictionaryWords, words)
	return nil
}
