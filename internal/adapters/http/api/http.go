// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/klauspost/compress/gzhttp"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Authenticator
	PlayerDependencies
	GameDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the arena API.
type Server struct {
	auth         Authenticator
	players      *PlayersHandler
	games        *GamesHandler
	leaderboards *LeaderboardHandler
	health       *HealthHandler
	stats        *StatsHandler

	limiter  *limiter
	maxLimit int
	log      logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		auth:     deps,
		players:  NewPlayersHandler(deps),
		games:    NewGamesHandler(deps),
		health:   NewHealthHandler(),
		stats:    NewStatsHandler(statsProvider),
		limiter:  newLimiter(defaultRPS, defaultBurst),
		maxLimit: defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("api")
	}
	s.leaderboards = NewLeaderboardHandler(deps, s.maxLimit)
	return s
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(_ context.Context, router *httprouter.Router) {
	router.GET("/healthz", s.route("healthz", s.health.HandleHealth, public))
	router.GET("/metrics", s.route("metrics", s.health.HandleMetrics, public))
	router.GET("/stats", s.route("stats", s.stats.HandleStats, public))

	router.POST("/players/:player_id/join", s.route("join", s.players.HandleJoin, public))
	router.POST("/players/:player_id/leave", s.route("leave", s.players.HandleLeave, authenticated))
	router.GET("/players/:player_id/status", s.route("status", s.players.HandleStatus, authenticated))
	router.GET("/players/:player_id/move", s.route("move", s.players.HandleMove, authenticated))
	router.GET("/players/:player_id/games", s.route("player_games", s.players.HandleGames, authenticated))
	router.GET("/players/:player_id/rank", s.route("rank", s.leaderboards.HandleRank, public))

	router.GET("/games/:game_id", s.route("game", s.games.HandleGame, optional))
	router.GET("/games/:game_id/log", s.route("log", s.games.HandleLog, optional))
	router.POST("/games/:game_id/clue", s.route("clue", s.games.HandleClue, authenticated))
	router.POST("/games/:game_id/guesses", s.route("guesses", s.games.HandleGuesses, authenticated))

	router.GET("/active", s.route("active", s.games.HandleActive, public))
	router.GET("/leaderboards", s.route("leaderboards", s.leaderboards.HandleLeaderboards, public))
}

// Handler returns a router with every route registered, compressing
// responses for clients that accept gzip.
func (s *Server) Handler(ctx context.Context) http.Handler {
	router := httprouter.New()
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.log.Error(r.Context(), "handler panic", logger.String("path", r.URL.Path), logger.Any("panic", v))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: "internal error"})
	}
	s.Register(ctx, router)
	return gzhttp.GzipHandler(router)
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Outcome *game.Outcome `json:"outcome,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorWith(w, err, nil)
}

// writeErrorWith writes err and, for applied illegal moves, the outcome of
// the forfeit.
func writeErrorWith(w http.ResponseWriter, err error, out *game.Outcome) {
	k := classify(err)
	msg := http.StatusText(k.status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, k.status, errorResponse{Code: k.code, Message: msg, Outcome: out})
}
