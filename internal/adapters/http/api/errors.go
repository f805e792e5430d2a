package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/codenames/internal/adapters/mailbox"
	"github.com/okian/codenames/internal/adapters/repository"
	service "github.com/okian/codenames/internal/app"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/leaderboard"
	"github.com/okian/codenames/internal/domain/outcome"
	"github.com/okian/codenames/internal/domain/pool"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limited")
	ErrForbidden   = errors.New("credentials do not match the player")
)

type kind struct {
	status int
	code   string
}

// classify maps an error to its HTTP status and error code.
func classify(err error) kind {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidPlayerID),
		errors.Is(err, leaderboard.ErrInvalidLimit),
		errors.Is(err, leaderboard.ErrUnknownBoard):
		return kind{http.StatusBadRequest, "bad_request"}
	case errors.Is(err, service.ErrUnauthorized):
		return kind{http.StatusUnauthorized, "unauthorized"}
	case errors.Is(err, ErrForbidden):
		return kind{http.StatusForbidden, "forbidden"}
	case errors.Is(err, game.ErrValidation):
		return kind{http.StatusUnprocessableEntity, "illegal_move"}
	case errors.Is(err, game.ErrIllegalState),
		errors.Is(err, game.ErrNotInGame),
		errors.Is(err, mailbox.ErrNoPendingMove),
		errors.Is(err, mailbox.ErrStaleRequest),
		errors.Is(err, mailbox.ErrWrongKind):
		return kind{http.StatusConflict, "illegal_state"}
	case errors.Is(err, pool.ErrInconsistent):
		return kind{http.StatusConflict, "pool_conflict"}
	case errors.Is(err, service.ErrGameNotFound),
		errors.Is(err, outcome.ErrUnknownPlayer),
		errors.Is(err, leaderboard.ErrNotFound),
		errors.Is(err, repository.ErrNotFound):
		return kind{http.StatusNotFound, "not_found"}
	case errors.Is(err, ErrRateLimited):
		return kind{http.StatusTooManyRequests, "rate_limited"}
	case errors.Is(err, repository.ErrPersistence),
		errors.Is(err, outcome.ErrPersistence),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return kind{http.StatusServiceUnavailable, "unavailable"}
	default:
		return kind{http.StatusInternalServerError, "internal_error"}
	}
}

// Classify returns the HTTP status and error code reported for err.
func Classify(err error) (status int, code string) {
	k := classify(err)
	return k.status, k.code
}
