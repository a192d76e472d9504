package redis

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Records are stored as JSON blobs; listings go through creation-time ZSETs.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, cfg), nil
}

// NewClient opens and verifies a client. The feed shares it with the storage.
func NewClient(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client exposes the underlying connection
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func getJSON[T any](ctx context.Context, c *redis.Client, key string, notFound error) (*T, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// listJSON loads every live member of a creation-ordered index.
// Members whose record has expired are skipped.
func listJSON[T any](ctx context.Context, c *redis.Client, indexKey string, keyFn func(string) string) ([]*T, error) {
	ids, err := c.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyFn(id)
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(values))
	var stale []any
	for i, val := range values {
		if val == nil {
			stale = append(stale, ids[i])
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(val.(string)), &v); err != nil {
			continue // Skip invalid data
		}
		out = append(out, &v)
	}
	if len(stale) > 0 {
		_ = c.ZRem(ctx, indexKey, stale...).Err()
	}
	return out, nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, userKey(user.ID), data, 0).Err()
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return getJSON[model.User](ctx, s.client, userKey(id), model.ErrUserNotFound)
}

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, credentialKey(cred.Email), data, 0).Err()
}

func (s *Storage) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	return getJSON[model.Credential](ctx, s.client, credentialKey(email), model.ErrCredentialNotFound)
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.GameRoom) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roomKey(room.ID), data, s.cfg.RoomTTL)
	pipe.Set(ctx, roomCodeIndexKey(room.Code), string(room.ID), s.cfg.RoomTTL)
	pipe.ZAddNX(ctx, roomsIndexKey(), redis.Z{Score: float64(room.CreatedAt.UnixMilli()), Member: string(room.ID)})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.GameRoom, error) {
	return getJSON[model.GameRoom](ctx, s.client, roomKey(id), model.ErrRoomNotFound)
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.GameRoom, error) {
	id, err := s.client.Get(ctx, roomCodeIndexKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	return s.GetRoom(ctx, model.RoomID(id))
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, roomCodeIndexKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *Storage) ListRooms(ctx context.Context, filter model.RoomFilter) ([]*model.GameRoom, error) {
	rooms, err := listJSON[model.GameRoom](ctx, s.client, roomsIndexKey(), func(id string) string {
		return roomKey(model.RoomID(id))
	})
	if err != nil {
		return nil, err
	}
	out := rooms[:0]
	for _, r := range rooms {
		if storage.MatchesRoom(filter, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Tournament operations

func (s *Storage) SaveTournament(ctx context.Context, t *model.Tournament) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tournamentKey(t.ID), data, s.cfg.TournamentTTL)
	pipe.ZAddNX(ctx, tournamentsIndexKey(), redis.Z{Score: float64(t.CreatedAt.UnixMilli()), Member: string(t.ID)})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return getJSON[model.Tournament](ctx, s.client, tournamentKey(id), model.ErrTournamentNotFound)
}

func (s *Storage) ListTournaments(ctx context.Context, filter model.TournamentFilter) ([]*model.Tournament, error) {
	ts, err := listJSON[model.Tournament](ctx, s.client, tournamentsIndexKey(), func(id string) string {
		return tournamentKey(model.TournamentID(id))
	})
	if err != nil {
		return nil, err
	}
	out := ts[:0]
	for _, t := range ts {
		if storage.MatchesTournament(filter, t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Preference operations

func (s *Storage) GetPreference(ctx context.Context, userID model.UserID, key string) (string, error) {
	v, err := s.client.HGet(ctx, preferencesKey(userID), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrPreferenceNotFound
		}
		return "", err
	}
	return v, nil
}

func (s *Storage) SetPreference(ctx context.Context, userID model.UserID, key, value string) error {
	return s.client.HSet(ctx, preferencesKey(userID), key, value).Err()
}

func (s *Storage) RemovePreference(ctx context.Context, userID model.UserID, key string) error {
	return s.client.HDel(ctx, preferencesKey(userID), key).Err()
}

// UsersWithPreference scans every preference hash. Preferences are small
// and this only runs at startup.
func (s *Storage) UsersWithPreference(ctx context.Context, key, value string) ([]model.UserID, error) {
	prefix := preferencesKey("")
	var users []model.UserID
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		hashKey := iter.Val()
		v, err := s.client.HGet(ctx, hashKey, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if v == value {
			users = append(users, model.UserID(strings.TrimPrefix(hashKey, prefix)))
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	slices.Sort(users)
	return users, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	key := dictionaryKey()

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	return s.client.SMembers(ctx, key).Result()
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	key := dictionaryKey()

	// Delete existing dictionary and add new words atomically
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)

	if len(words) > 0 {
		members := make([]any, len(words))
		for i, w := range words {
			members[i] = w
		}
		pipe.SAdd(ctx, key, members...)
	}

	_, err := pipe.Exec(ctx)
	return err
}
