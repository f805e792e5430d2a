package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/internal/domain/turn"
	"github.com/okian/codenames/internal/domain/types"
)

// PlayerDependencies defines the player operations behind the HTTP API.
type PlayerDependencies interface {
	Join(ctx context.Context, playerID, key string) (model.Player, error)
	Leave(ctx context.Context, playerID string) error
	Status(ctx context.Context, playerID string) (types.PlayerStatus, error)
	PendingMove(playerID string) (turn.Request, bool)
	PlayerGames(ctx context.Context, playerID string) ([]string, error)
}

// PlayersHandler handles the /players routes.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandleJoin handles POST /players/:player_id/join. The first join of an
// unknown id registers it.
func (h *PlayersHandler) HandleJoin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, key := credentials(r)
	if pathID := ps.ByName("player_id"); id == "" {
		id = pathID
	} else if id != pathID {
		writeError(w, ErrForbidden)
		return
	}
	p, err := h.deps.Join(r.Context(), id, key)
	if err != nil {
		writeError(w, err)
		return
	}
	st := types.NewPlayerStatus(p)
	st.Waiting = p.Status == model.StatusWaiting
	writeJSON(w, http.StatusOK, st)
}

// HandleLeave handles POST /players/:player_id/leave.
func (h *PlayersHandler) HandleLeave(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.deps.Leave(r.Context(), playerFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "left"})
}

// HandleStatus handles GET /players/:player_id/status.
func (h *PlayersHandler) HandleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, err := h.deps.Status(r.Context(), playerFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleMove handles GET /players/:player_id/move. It answers 204 when the
// player owes no move.
func (h *PlayersHandler) HandleMove(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := h.deps.PendingMove(playerFrom(r))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// HandleGames handles GET /players/:player_id/games.
func (h *PlayersHandler) HandleGames(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ids, err := h.deps.PlayerGames(r.Context(), playerFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, types.GameList{Games: ids})
}
