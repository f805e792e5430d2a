package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/types"
)

const (
	maxBodyBytes = 16 << 10
	// completedID is the pseudo game id listing completed games.
	completedID = "completed"
)

// GameDependencies defines the game operations behind the HTTP API.
type GameDependencies interface {
	SubmitClue(ctx context.Context, gameID, playerID, requestID, word string, count int) (game.Outcome, error)
	SubmitGuesses(ctx context.Context, gameID, playerID, requestID string, words []string) (game.Outcome, error)
	GameLog(ctx context.Context, gameID, requesterID string) (game.Log, error)
	CompletedGames(ctx context.Context) ([]string, error)
	ActiveCount() int
}

// GamesHandler handles the /games routes.
type GamesHandler struct {
	deps GameDependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps GameDependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

type clueRequest struct {
	PlayerID  string `json:"player_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Word      string `json:"word"`
	Count     *int   `json:"count"`
}

type guessRequest struct {
	PlayerID  string   `json:"player_id,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
	Words     []string `json:"words"`
}

// HandleClue handles POST /games/:game_id/clue.
func (h *GamesHandler) HandleClue(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body clueRequest
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Count == nil {
		writeError(w, fmt.Errorf("%w: count is required", ErrBadRequest))
		return
	}
	playerID, err := actingAs(r, body.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.deps.SubmitClue(r.Context(), ps.ByName("game_id"), playerID, body.RequestID, body.Word, *body.Count)
	writeOutcome(w, out, err)
}

// HandleGuesses handles POST /games/:game_id/guesses. An empty list passes.
func (h *GamesHandler) HandleGuesses(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body guessRequest
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	playerID, err := actingAs(r, body.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.deps.SubmitGuesses(r.Context(), ps.ByName("game_id"), playerID, body.RequestID, body.Words)
	writeOutcome(w, out, err)
}

// HandleGame handles GET /games/:game_id, where the id "completed" lists
// completed games.
func (h *GamesHandler) HandleGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("game_id") == completedID {
		h.handleCompleted(w, r)
		return
	}
	h.HandleLog(w, r, ps)
}

// HandleLog handles GET /games/:game_id/log. Colors of unrevealed words are
// hidden from operatives of a game in progress.
func (h *GamesHandler) HandleLog(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	l, err := h.deps.GameLog(r.Context(), ps.ByName("game_id"), playerFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *GamesHandler) handleCompleted(w http.ResponseWriter, r *http.Request) {
	ids, err := h.deps.CompletedGames(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, types.GameList{Games: ids})
}

// HandleActive handles GET /active.
func (h *GamesHandler) HandleActive(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, types.ActiveCount{Active: h.deps.ActiveCount()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// actingAs checks a player id named in a request body against the caller.
func actingAs(r *http.Request, named string) (string, error) {
	caller := playerFrom(r)
	if named != "" && named != caller {
		return "", fmt.Errorf("%w: %s acting as %s", ErrForbidden, caller, named)
	}
	return caller, nil
}

// writeOutcome reports an applied move. Illegal moves still forfeit the turn,
// so their outcome rides along with the error.
func writeOutcome(w http.ResponseWriter, out game.Outcome, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, game.ErrValidation):
		writeErrorWith(w, err, &out)
	default:
		writeError(w, err)
	}
}
