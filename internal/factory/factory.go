package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/dependencies/random"
	"github.com/mcoot/kelimeoyunu/internal/feed"
	"github.com/mcoot/kelimeoyunu/internal/lock"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/services/auth"
	"github.com/mcoot/kelimeoyunu/internal/services/board"
	"github.com/mcoot/kelimeoyunu/internal/services/bot"
	"github.com/mcoot/kelimeoyunu/internal/services/lexicon"
	"github.com/mcoot/kelimeoyunu/internal/services/lives"
	"github.com/mcoot/kelimeoyunu/internal/services/notification"
	"github.com/mcoot/kelimeoyunu/internal/services/profile"
	"github.com/mcoot/kelimeoyunu/internal/services/room"
	"github.com/mcoot/kelimeoyunu/internal/services/scoring"
	"github.com/mcoot/kelimeoyunu/internal/services/tournament"
	"github.com/mcoot/kelimeoyunu/internal/sse"
	"github.com/mcoot/kelimeoyunu/internal/storage"
	"github.com/mcoot/kelimeoyunu/internal/storage/memory"
	"github.com/mcoot/kelimeoyunu/internal/storage/postgres"
	redisstorage "github.com/mcoot/kelimeoyunu/internal/storage/redis"
	"github.com/mcoot/kelimeoyunu/internal/storage/sqlite"
	"github.com/mcoot/kelimeoyunu/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage
	Feed    feed.Feed

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Locks  *lock.Keyed

	// Services
	Lexicon           *lexicon.Service
	BoardService      *board.Service
	ScoringService    *scoring.Service
	Notifier          *notification.Service
	ProfileService    *profile.Service
	LivesService      *lives.Service
	Poller            *lives.Poller
	AuthService       *auth.Service
	BotService        *bot.Service
	RoomManager       *room.Manager
	TournamentManager *tournament.Manager

	// Live transports
	HubManager *sse.HubManager
	Sockets    *ws.Handler

	logger  *slog.Logger
	closers []func() error
}

// Config holds configuration for the application factory
type Config struct {
	// LexiconPath is a word list file (optional)
	// If empty, stored words are used, then the built-in list
	LexiconPath string
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the game storage and feed backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig moves users and credentials to PostgreSQL (optional)
	PostgresConfig *postgres.Config
	// SQLitePath moves preferences to a SQLite file (optional)
	SQLitePath string
	// SESRegion and SESFrom enable email notifications when both are set
	SESRegion string
	SESFrom   string
	// PollInterval is how often active users' lives are refreshed
	// If zero, defaults to lives.DefaultPollInterval
	PollInterval time.Duration
}

// wiring is what newWithDependencies needs beyond the stores
type wiring struct {
	auth         auth.Config
	pollInterval time.Duration
	sinks        []notification.Sink
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	var closers []func() error
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	// Create storage based on type
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	var composite storage.Composite
	var bus feed.Feed
	switch storageType {
	case StorageTypeMemory:
		store := memory.New()
		composite = storage.Composite{UserStore: store, GameStore: store, PreferenceStore: store}
		bus = feed.NewMemory(logger)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		closers = append(closers, redisStore.Close)
		composite = storage.Composite{UserStore: redisStore, GameStore: redisStore, PreferenceStore: redisStore}
		bus = feed.NewRedis(redisStore.Client(), logger)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}
	closers = append(closers, bus.Close)

	if cfg.PostgresConfig != nil {
		pool, err := postgres.NewPool(ctx, *cfg.PostgresConfig)
		if err != nil {
			return fail(err)
		}
		users := postgres.NewUserStore(pool)
		closers = append(closers, func() error { users.Close(); return nil })
		if err := users.Migrate(ctx); err != nil {
			return fail(err)
		}
		composite.UserStore = users
	}

	if cfg.SQLitePath != "" {
		prefs, err := sqlite.Open(cfg.SQLitePath, clk)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, prefs.Close)
		composite.PreferenceStore = prefs
	}

	w := wiring{auth: cfg.AuthConfig, pollInterval: cfg.PollInterval}
	if cfg.SESRegion != "" && cfg.SESFrom != "" {
		email, err := notification.NewEmailSink(ctx, cfg.SESRegion, cfg.SESFrom, composite.UserStore, logger)
		if err != nil {
			return fail(fmt.Errorf("email sink: %w", err))
		}
		w.sinks = append(w.sinks, email)
	}

	app := newWithDependencies(composite, bus, clk, rnd, w, logger)
	app.closers = closers

	if err := app.LoadLexicon(ctx, cfg.LexiconPath); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, bus feed.Feed, clk clock.Clock, rnd random.Random, w wiring, logger *slog.Logger) *App {
	locks := lock.NewKeyed()
	emitter := feed.NewEmitter(bus, clk, logger)

	// Create services
	lexiconService := lexicon.New(store)
	boardService := board.New(rnd)
	scoringService := scoring.New(lexiconService)
	sinks := append([]notification.Sink{notification.NewFeedSink(emitter)}, w.sinks...)
	notifier := notification.New(store, clk, logger, sinks...)
	profileService := profile.New(store, locks, clk, logger)
	livesService := lives.New(store, store, locks, clk, notifier, emitter, logger)

	pollInterval := w.pollInterval
	if pollInterval <= 0 {
		pollInterval = lives.DefaultPollInterval
	}
	poller := lives.NewPoller(livesService, clk, pollInterval, logger)

	authService := auth.New(store, profileService, clk, rnd, w.auth, logger)
	botService := bot.NewService(bot.NewRandomStrategy(rnd), clk, logger)

	roomManager := room.NewManager(room.Dependencies{
		Store:    store,
		Boards:   boardService,
		Scorer:   scoringService,
		Lives:    livesService,
		Profiles: profileService,
		Notifier: notifier,
		Locks:    locks,
		Clock:    clk,
		Random:   rnd,
		Emitter:  emitter,
		Logger:   logger,
	})
	tournamentManager := tournament.NewManager(tournament.Dependencies{
		Store:    store,
		Bots:     botService,
		Lives:    livesService,
		Profiles: profileService,
		Notifier: notifier,
		Locks:    locks,
		Clock:    clk,
		Random:   rnd,
		Emitter:  emitter,
		Logger:   logger,
	})

	return &App{
		Storage:           store,
		Feed:              bus,
		Clock:             clk,
		Random:            rnd,
		Locks:             locks,
		Lexicon:           lexiconService,
		BoardService:      boardService,
		ScoringService:    scoringService,
		Notifier:          notifier,
		ProfileService:    profileService,
		LivesService:      livesService,
		Poller:            poller,
		AuthService:       authService,
		BotService:        botService,
		RoomManager:       roomManager,
		TournamentManager: tournamentManager,
		HubManager:        sse.NewHubManager(bus, logger),
		Sockets:           ws.NewHandler(roomManager, bus, logger),
		logger:            logger.With(slog.String("component", "app")),
	}
}

// LoadLexicon loads the word list from path if given. Otherwise it uses the
// stored words, falling back to the built-in list when none are stored.
func (a *App) LoadLexicon(ctx context.Context, path string) error {
	if path != "" {
		if err := a.Lexicon.LoadFromFile(ctx, path); err != nil {
			return fmt.Errorf("load lexicon %s: %w", path, err)
		}
		return nil
	}

	err := a.Lexicon.LoadFromStorage(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrDictionaryNotLoaded) {
		return fmt.Errorf("load stored lexicon: %w", err)
	}
	return a.Lexicon.LoadDefault()
}

// Start re-arms timers for rooms and tournaments left running by a previous
// process and starts the lives poller. The poller stops when ctx ends.
func (a *App) Start(ctx context.Context) error {
	rooms, err := a.RoomManager.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover rooms: %w", err)
	}
	tournaments, err := a.TournamentManager.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover tournaments: %w", err)
	}
	reminders, err := a.Notifier.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover reminders: %w", err)
	}
	a.logger.Info("recovered timers",
		slog.Int("rooms", rooms),
		slog.Int("tournaments", tournaments),
		slog.Int("reminders", reminders))

	go a.Poller.Run(ctx)
	return nil
}

// StopTimers halts room, tournament and reminder timers. Their state stays
// in storage for the next Start to recover.
func (a *App) StopTimers() {
	a.RoomManager.Stop()
	a.TournamentManager.Stop()
	a.Notifier.Stop()
}

// Close stops timers and releases every backend
func (a *App) Close() error {
	a.StopTimers()
	a.HubManager.Close()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
