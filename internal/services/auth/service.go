package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/dependencies/random"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/profile"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

// MinPasswordLength for email sign-up
const MinPasswordLength = 6

// GoogleUserInfoURL is queried after the code exchange
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Session is the result of a successful sign-in
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
	Created   bool        `json:"created"`
}

// Claims carried by an access token
type Claims struct {
	UserID    model.UserID
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	JWTSecret          string
	TokenTTL           time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		JWTSecret: "dev-secret-change-me",
		TokenTTL:  7 * 24 * time.Hour,
	}
}

// Service handles sign-up, login and access tokens
type Service struct {
	users   storage.UserStore
	profile *profile.Service
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	secret      []byte
	tokenTTL    time.Duration
	oauth       *oauth2.Config
	userInfoURL string
}

// New creates a new AuthService
func New(users storage.UserStore, profiles *profile.Service, clk clock.Clock, rng random.Random, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaults.JWTSecret
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}

	s := &Service{
		users:       users,
		profile:     profiles,
		clock:       clk,
		random:      rng,
		logger:      logger.With(slog.String("component", "auth")),
		secret:      []byte(cfg.JWTSecret),
		tokenTTL:    cfg.TokenTTL,
		userInfoURL: GoogleUserInfoURL,
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		s.oauth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		}
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers an email account
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, model.ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, model.ErrWeakPassword
	}

	_, err := s.users.GetCredentialByEmail(ctx, email)
	if err == nil {
		return nil, model.ErrEmailExists
	}
	if !errors.Is(err, model.ErrCredentialNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	userID := model.UserID(s.random.UUID())
	user, created, err := s.profile.EnsureUser(ctx, profile.Identity{
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		Provider:    model.ProviderEmail,
	})
	if err != nil {
		return nil, err
	}

	cred := &model.Credential{
		UserID:       userID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.SaveCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	return s.createSession(user, created)
}

// Login authenticates an email account
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	cred, err := s.users.GetCredentialByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrCredentialNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	user, err := s.users.GetUser(ctx, cred.UserID)
	if err != nil {
		return nil, err
	}
	return s.createSession(user, false)
}

// OAuthEnabled reports whether Google sign-in is configured
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// AuthCodeURL is where the client is sent to sign in with Google
func (s *Service) AuthCodeURL(state string) (string, error) {
	if s.oauth == nil {
		return "", model.ErrOAuthDisabled
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type googleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// CompleteOAuth exchanges the callback code and signs the Google user in
func (s *Service) CompleteOAuth(ctx context.Context, code string) (*Session, error) {
	if s.oauth == nil {
		return nil, model.ErrOAuthDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("oauth exchange failed", slog.Any("error", err))
		return nil, model.ErrOAuthFailed
	}

	info, err := s.fetchGoogleUser(ctx, tok)
	if err != nil {
		s.logger.Warn("oauth userinfo failed", slog.Any("error", err))
		return nil, model.ErrOAuthFailed
	}

	user, created, err := s.profile.EnsureUser(ctx, profile.Identity{
		UserID:      model.UserID("google_" + info.ID),
		Email:       normalizeEmail(info.Email),
		DisplayName: info.Name,
		PhotoURL:    info.Picture,
		Provider:    model.ProviderGoogle,
	})
	if err != nil {
		return nil, err
	}
	return s.createSession(user, created)
}

func (s *Service) fetchGoogleUser(ctx context.Context, tok *oauth2.Token) (*googleUser, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUser
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, errors.New("userinfo missing id")
	}
	return &info, nil
}

// IssueToken signs an access token for the user
func (s *Service) IssueToken(userID model.UserID) (string, time.Time, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   string(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken checks the signature and expiry of an access token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return nil, model.ErrInvalidToken
	}
	return &Claims{
		UserID:    model.UserID(claims.Subject),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) createSession(user *model.User, created bool) (*Session, error) {
	token, expiresAt, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user, Created: created}, nil
}

// TokenValidator is what the API middleware needs
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

var _ TokenValidator = (*Service)(nil)
