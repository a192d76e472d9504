package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/kelimeoyunu/internal/api/handler"
	"github.com/mcoot/kelimeoyunu/internal/api/middleware"
	"github.com/mcoot/kelimeoyunu/internal/api/response"
	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	sharedmw "github.com/mcoot/kelimeoyunu/internal/middleware"
	"github.com/mcoot/kelimeoyunu/internal/services/auth"
	"github.com/mcoot/kelimeoyunu/internal/services/lexicon"
	"github.com/mcoot/kelimeoyunu/internal/services/lives"
	"github.com/mcoot/kelimeoyunu/internal/services/notification"
	"github.com/mcoot/kelimeoyunu/internal/services/profile"
	"github.com/mcoot/kelimeoyunu/internal/services/room"
	"github.com/mcoot/kelimeoyunu/internal/services/tournament"
	"github.com/mcoot/kelimeoyunu/internal/sse"
	"github.com/mcoot/kelimeoyunu/internal/storage"
	"github.com/mcoot/kelimeoyunu/internal/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger            *slog.Logger
	Clock             clock.Clock
	AuthService       *auth.Service
	ProfileService    *profile.Service
	LivesService      *lives.Service
	Poller            *lives.Poller
	Notifier          *notification.Service
	Preferences       storage.PreferenceStore
	Lexicon           *lexicon.Service
	RoomManager       *room.Manager
	TournamentManager *tournament.Manager
	HubManager        *sse.HubManager
	Sockets           *ws.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	profileHandler := handler.NewProfileHandler(cfg.ProfileService, cfg.Preferences, cfg.Notifier)
	livesHandler := handler.NewLivesHandler(cfg.LivesService, cfg.Clock)
	roomHandler := handler.NewRoomHandler(cfg.RoomManager, cfg.ProfileService, cfg.Sockets)
	tournamentHandler := handler.NewTournamentHandler(cfg.TournamentManager, cfg.ProfileService)
	eventsHandler := handler.NewEventsHandler(cfg.HubManager)

	// Create middleware
	var tracker middleware.ActivityTracker
	if cfg.Poller != nil {
		tracker = cfg.Poller
	}
	authMiddleware := middleware.Auth(cfg.AuthService, tracker)
	loggingMiddleware := sharedmw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.Lexicon)).Methods(http.MethodGet)

	// Auth routes (no auth required)
	api.HandleFunc("/auth/signup", authHandler.SignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/google", authHandler.GoogleStart).Methods(http.MethodGet)
	api.HandleFunc("/auth/google/callback", authHandler.GoogleCallback).Methods(http.MethodGet)

	// Profile, lives and preferences of the signed-in user
	me := api.PathPrefix("/me").Subrouter()
	me.Use(authMiddleware)
	me.HandleFunc("", profileHandler.GetMe).Methods(http.MethodGet)
	me.HandleFunc("", profileHandler.UpdateMe).Methods(http.MethodPatch)
	me.HandleFunc("/lives", livesHandler.Status).Methods(http.MethodGet)
	me.HandleFunc("/lives/ad-reward", livesHandler.AdReward).Methods(http.MethodPost)
	me.HandleFunc("/lives/daily", livesHandler.Daily).Methods(http.MethodGet)
	me.HandleFunc("/preferences/{key}", profileHandler.GetPreference).Methods(http.MethodGet)
	me.HandleFunc("/preferences/{key}", profileHandler.SetPreference).Methods(http.MethodPut)

	// Room routes (all require auth)
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(authMiddleware)
	rooms.HandleFunc("", roomHandler.Create).Methods(http.MethodPost)
	rooms.HandleFunc("/join", roomHandler.Join).Methods(http.MethodPost)
	rooms.HandleFunc("/match", roomHandler.Match).Methods(http.MethodPost)
	rooms.HandleFunc("/code/{code}", roomHandler.GetByCode).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}/ready", roomHandler.Ready).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/word", roomHandler.UpdateWord).Methods(http.MethodPut)
	rooms.HandleFunc("/{id}/words", roomHandler.Submit).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/timeout", roomHandler.Timeout).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/invite", roomHandler.Invite).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/ws", roomHandler.Socket).Methods(http.MethodGet)

	// Tournament routes (all require auth)
	tournaments := api.PathPrefix("/tournaments").Subrouter()
	tournaments.Use(authMiddleware)
	tournaments.HandleFunc("", tournamentHandler.Create).Methods(http.MethodPost)
	tournaments.HandleFunc("/match", tournamentHandler.Match).Methods(http.MethodPost)
	tournaments.HandleFunc("/{id}", tournamentHandler.Get).Methods(http.MethodGet)
	tournaments.HandleFunc("/{id}/join", tournamentHandler.Join).Methods(http.MethodPost)
	tournaments.HandleFunc("/{id}/start", tournamentHandler.Start).Methods(http.MethodPost)
	tournaments.HandleFunc("/{id}/disband", tournamentHandler.Disband).Methods(http.MethodPost)
	tournaments.HandleFunc("/{id}/matches/{match_id}/result", tournamentHandler.Report).Methods(http.MethodPost)

	// Change feed over SSE
	events := api.PathPrefix("/events").Subrouter()
	events.Use(authMiddleware)
	events.HandleFunc("", eventsHandler.Stream).Methods(http.MethodGet)

	return r
}

func healthHandler(lex *lexicon.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		words := 0
		if lex != nil {
			words = lex.WordCount()
		}
		response.JSON(w, http.StatusOK, response.Health{Status: "ok", Dictionary: words})
	}
}
