// Package postgres stores user profiles and credentials in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

//go:embed schema.sql
var schema string

// UserStore is a PostgreSQL-backed storage.UserStore
type UserStore struct {
	pool *pgxpool.Pool
}

// Ensure UserStore implements the interface
var _ storage.UserStore = (*UserStore)(nil)

// NewPool opens and verifies a connection pool
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.PoolSize)
	poolConfig.MinConns = max(int32(cfg.PoolSize/4), 1)
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewUserStore wraps an existing pool
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Migrate applies the schema. It is idempotent.
func (s *UserStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close releases the pool
func (s *UserStore) Close() {
	s.pool.Close()
}

func (s *UserStore) SaveUser(ctx context.Context, u *model.User) error {
	const query = `
		INSERT INTO users (id, email, display_name, photo_url, provider, lives, last_life_regeneration,
			premium_until, total_score, games_won, tournaments_won, words_found, badges, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			photo_url = EXCLUDED.photo_url,
			provider = EXCLUDED.provider,
			lives = EXCLUDED.lives,
			last_life_regeneration = EXCLUDED.last_life_regeneration,
			premium_until = EXCLUDED.premium_until,
			total_score = EXCLUDED.total_score,
			games_won = EXCLUDED.games_won,
			tournaments_won = EXCLUDED.tournaments_won,
			words_found = EXCLUDED.words_found,
			badges = EXCLUDED.badges,
			updated_at = EXCLUDED.updated_at
	`
	badges := u.Badges
	if badges == nil {
		badges = []model.Badge{}
	}
	_, err := s.pool.Exec(ctx, query,
		u.ID, u.Email, u.DisplayName, u.PhotoURL, u.Provider, u.Lives, u.LastLifeRegeneration,
		u.PremiumUntil, u.TotalScore, u.GamesWon, u.TournamentsWon, u.WordsFound, badges,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	const query = `
		SELECT id, email, display_name, photo_url, provider, lives, last_life_regeneration,
			premium_until, total_score, games_won, tournaments_won, words_found, badges, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.PhotoURL,
		&u.Provider,
		&u.Lives,
		&u.LastLifeRegeneration,
		&u.PremiumUntil,
		&u.TotalScore,
		&u.GamesWon,
		&u.TournamentsWon,
		&u.WordsFound,
		&u.Badges,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) SaveCredential(ctx context.Context, cred *model.Credential) error {
	const query = `
		INSERT INTO credentials (email, user_id, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			password_hash = EXCLUDED.password_hash
	`
	_, err := s.pool.Exec(ctx, query, strings.ToLower(cred.Email), cred.UserID, cred.PasswordHash, cred.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (s *UserStore) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	const query = `
		SELECT email, user_id, password_hash, created_at
		FROM credentials
		WHERE email = $1
	`

	var c model.Credential
	err := s.pool.QueryRow(ctx, query, strings.ToLower(email)).Scan(&c.Email, &c.UserID, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &c, nil
}
