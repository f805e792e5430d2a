package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/okian/codenames/internal/domain/leaderboard"
	"github.com/okian/codenames/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboards(ctx context.Context, kind string, limit int) (types.Leaderboards, error)
	Rank(ctx context.Context, kind, playerID string) (types.Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleLeaderboards handles GET /leaderboards?role=R&limit=N. Without a
// role every board is returned.
func (h *LeaderboardHandler) HandleLeaderboards(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	n := min(defaultLimit, h.maxLimit)
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > h.maxLimit {
			writeError(w, fmt.Errorf("%w: limit must be between 1 and %d", leaderboard.ErrInvalidLimit, h.maxLimit))
			return
		}
		n = v
	}
	boards, err := h.deps.Leaderboards(r.Context(), q.Get("role"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

// HandleRank handles GET /players/:player_id/rank?role=R. The combined board
// is the default.
func (h *LeaderboardHandler) HandleRank(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	role := r.URL.Query().Get("role")
	if role == "" {
		role = string(leaderboard.Combined)
	}
	e, err := h.deps.Rank(r.Context(), role, ps.ByName("player_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
