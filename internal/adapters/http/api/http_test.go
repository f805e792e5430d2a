package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/codenames/internal/adapters/http/api"
	"github.com/okian/codenames/internal/adapters/mailbox"
	service "github.com/okian/codenames/internal/app"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/leaderboard"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/internal/domain/turn"
	"github.com/okian/codenames/internal/domain/types"
	"github.com/okian/codenames/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// mockDependencies implements api.Dependencies over in-memory fixtures.
type mockDependencies struct {
	mu      sync.Mutex
	keys    map[string]string
	touched []string

	pending   map[string]turn.Request
	games     map[string][]string
	completed []string
	logs      map[string]game.Log
	active    int

	submitOut game.Outcome
	submitErr error
	lastMove  string
	requester string

	boards    types.Leaderboards
	lastKind  string
	lastLimit int
	rank      types.Entry
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		keys:      map[string]string{"ann": "ann-key", "bob": "bob-key"},
		pending:   map[string]turn.Request{},
		games:     map[string][]string{"ann": {"g1", "g2"}},
		completed: []string{"g1"},
		logs:      map[string]game.Log{"g1": {ID: "g1", Phase: model.Completed}},
		active:    2,
		boards: types.Leaderboards{
			leaderboard.Combined: {{PlayerID: "ann", Rating: 1510, Rank: 1}},
		},
		rank: types.Entry{PlayerID: "ann", Rating: 1510, Rank: 1},
	}
}

func (m *mockDependencies) Authenticate(playerID, key string) error {
	if want, ok := m.keys[playerID]; !ok || key == "" || want != key {
		return fmt.Errorf("%w: %s", service.ErrUnauthorized, playerID)
	}
	return nil
}

func (m *mockDependencies) Touch(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, playerID)
}

func (m *mockDependencies) Join(_ context.Context, playerID, key string) (model.Player, error) {
	if err := m.Authenticate(playerID, key); err != nil {
		return model.Player{}, err
	}
	p := model.NewPlayer(playerID, 1500, time.Now())
	p.Status = model.StatusWaiting
	return *p, nil
}

func (m *mockDependencies) Leave(context.Context, string) error { return nil }

func (m *mockDependencies) Status(_ context.Context, playerID string) (types.PlayerStatus, error) {
	return types.NewPlayerStatus(*model.NewPlayer(playerID, 1500, time.Now())), nil
}

func (m *mockDependencies) PendingMove(playerID string) (turn.Request, bool) {
	req, ok := m.pending[playerID]
	return req, ok
}

func (m *mockDependencies) PlayerGames(_ context.Context, playerID string) ([]string, error) {
	return m.games[playerID], nil
}

func (m *mockDependencies) SubmitClue(_ context.Context, gameID, playerID, _, word string, count int) (game.Outcome, error) {
	m.lastMove = fmt.Sprintf("%s:%s:clue:%s:%d", gameID, playerID, word, count)
	return m.submitOut, m.submitErr
}

func (m *mockDependencies) SubmitGuesses(_ context.Context, gameID, playerID, _ string, words []string) (game.Outcome, error) {
	m.lastMove = fmt.Sprintf("%s:%s:guess:%s", gameID, playerID, strings.Join(words, ","))
	return m.submitOut, m.submitErr
}

func (m *mockDependencies) GameLog(_ context.Context, gameID, requesterID string) (game.Log, error) {
	m.requester = requesterID
	l, ok := m.logs[gameID]
	if !ok {
		return game.Log{}, fmt.Errorf("%w: %s", service.ErrGameNotFound, gameID)
	}
	return l, nil
}

func (m *mockDependencies) CompletedGames(context.Context) ([]string, error) {
	return m.completed, nil
}

func (m *mockDependencies) ActiveCount() int { return m.active }

func (m *mockDependencies) Leaderboards(_ context.Context, kind string, limit int) (types.Leaderboards, error) {
	m.lastKind, m.lastLimit = kind, limit
	if kind != "" {
		if _, err := leaderboard.ParseKind(kind); err != nil {
			return nil, err
		}
	}
	return m.boards, nil
}

func (m *mockDependencies) Rank(_ context.Context, kind, playerID string) (types.Entry, error) {
	m.lastKind = kind
	if playerID != m.rank.PlayerID {
		return types.Entry{}, fmt.Errorf("%w: %s", leaderboard.ErrNotFound, playerID)
	}
	return m.rank, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type errorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Outcome *game.Outcome `json:"outcome"`
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func asAnn() []string {
	return []string{api.HeaderPlayerID, "ann", api.HeaderPlayerKey, "ann-key"}
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var e errorBody
	So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
	return e
}

func TestServerPublicRoutes(t *testing.T) {
	Convey("Given an API handler", t, func() {
		deps := newMockDependencies()
		stats := &mockStatsProvider{stats: map[string]interface{}{"pool_size": 3}}
		h := api.NewServer(deps, stats, api.WithRateLimit(0, 0)).Handler(context.Background())

		Convey("healthz reports ok as JSON", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			So(w.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)
		})

		Convey("healthz serves metrics to scrapers", func() {
			w := do(h, http.MethodGet, "/healthz", "", "Accept", "text/plain")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/plain")
		})

		Convey("metrics are exposed", func() {
			w := do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("stats come from the provider", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got["pool_size"], ShouldEqual, float64(3))
		})

		Convey("active reports the number of running games", func() {
			w := do(h, http.MethodGet, "/active", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"active":2`)
		})

		Convey("completed games are listed under /games/completed", func() {
			w := do(h, http.MethodGet, "/games/completed", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var list types.GameList
			So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
			So(list.Games, ShouldResemble, []string{"g1"})
		})

		Convey("unknown routes are 404", func() {
			w := do(h, http.MethodGet, "/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServerPlayers(t *testing.T) {
	Convey("Given an API handler", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{}, api.WithRateLimit(0, 0)).Handler(context.Background())

		Convey("join registers a player with a valid key", func() {
			w := do(h, http.MethodPost, "/players/ann/join", "", api.HeaderPlayerKey, "ann-key")
			So(w.Code, ShouldEqual, http.StatusOK)
			var st types.PlayerStatus
			So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
			So(st.PlayerID, ShouldEqual, "ann")
			So(st.Waiting, ShouldBeTrue)
		})

		Convey("join accepts the key as a query parameter", func() {
			w := do(h, http.MethodPost, "/players/ann/join?player_key=ann-key", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("join without a key is unauthorized", func() {
			w := do(h, http.MethodPost, "/players/ann/join", "")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(decodeError(w).Code, ShouldEqual, "unauthorized")
		})

		Convey("join for another player is forbidden", func() {
			w := do(h, http.MethodPost, "/players/bob/join", "", asAnn()...)
			So(w.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("status needs credentials", func() {
			w := do(h, http.MethodGet, "/players/ann/status", "")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)

			w = do(h, http.MethodGet, "/players/ann/status", "", api.HeaderPlayerKey, "wrong")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("status of another player is forbidden", func() {
			w := do(h, http.MethodGet, "/players/bob/status", "", asAnn()...)
			So(w.Code, ShouldEqual, http.StatusForbidden)
			So(decodeError(w).Code, ShouldEqual, "forbidden")
		})

		Convey("status reports the player and refreshes liveness", func() {
			w := do(h, http.MethodGet, "/players/ann/status", "", asAnn()...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"combined_rating":1500`)
			So(deps.touched, ShouldContain, "ann")
		})

		Convey("move is 204 when nothing is owed", func() {
			w := do(h, http.MethodGet, "/players/ann/move", "", asAnn()...)
			So(w.Code, ShouldEqual, http.StatusNoContent)
		})

		Convey("move returns the pending request", func() {
			deps.pending["ann"] = turn.Request{ID: "r1", GameID: "g2", PlayerID: "ann", Kind: turn.KindClue}
			w := do(h, http.MethodGet, "/players/ann/move", "", asAnn()...)
			So(w.Code, ShouldEqual, http.StatusOK)
			var req turn.Request
			So(json.Unmarshal(w.Body.Bytes(), &req), ShouldBeNil)
			So(req.ID, ShouldEqual, "r1")
			So(req.Kind, ShouldEqual, turn.KindClue)
		})

		Convey("games lists every game of the player", func() {
			w := do(h, http.MethodGet, "/players/ann/games", "", asAnn()...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"games":["g1","g2"]`)

			w = do(h, http.MethodGet, "/players/bob/games", "", api.HeaderPlayerKey, "bob-key")
			So(w.Body.String(), ShouldContainSubstring, `"games":[]`)
		})

		Convey("leave acknowledges", func() {
			w := do(h, http.MethodPost, "/players/ann/leave", "", asAnn()...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"left"`)
		})
	})
}

func TestServerMoves(t *testing.T) {
	Convey("Given an API handler", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{}, api.WithRateLimit(0, 0)).Handler(context.Background())

		Convey("a clue is forwarded for the caller", func() {
			deps.submitOut = game.Outcome{Phase: model.AwaitingGuess}
			w := do(h, http.MethodPost, "/games/g2/clue", `{"word":"quartz","count":2}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastMove, ShouldEqual, "g2:ann:clue:quartz:2")
			So(w.Body.String(), ShouldContainSubstring, `"phase":"awaiting_guess"`)
		})

		Convey("a clue without a count is a bad request", func() {
			w := do(h, http.MethodPost, "/games/g2/clue", `{"word":"quartz"}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.lastMove, ShouldBeEmpty)
		})

		Convey("malformed bodies are bad requests", func() {
			w := do(h, http.MethodPost, "/games/g2/clue", `{"word":`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			w = do(h, http.MethodPost, "/games/g2/guesses", `{"words":[],"extra":1}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("a body naming another player is forbidden", func() {
			w := do(h, http.MethodPost, "/games/g2/clue", `{"player_id":"bob","word":"quartz","count":1}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("moves need credentials", func() {
			w := do(h, http.MethodPost, "/games/g2/guesses", `{"words":["a"]}`)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("an illegal move reports the forfeit", func() {
			deps.submitOut = game.Outcome{Phase: model.AwaitingClue, TurnEnded: true, Forfeited: true}
			deps.submitErr = fmt.Errorf("%w: word on board", game.ErrIllegalClue)
			w := do(h, http.MethodPost, "/games/g2/clue", `{"word":"apple","count":1}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			e := decodeError(w)
			So(e.Code, ShouldEqual, "illegal_move")
			So(e.Outcome, ShouldNotBeNil)
			So(e.Outcome.Forfeited, ShouldBeTrue)
		})

		Convey("an empty guess list is forwarded as a pass", func() {
			w := do(h, http.MethodPost, "/games/g2/guesses", `{"words":[]}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastMove, ShouldEqual, "g2:ann:guess:")
		})

		Convey("moves out of turn are conflicts", func() {
			deps.submitErr = game.ErrNotYourTurn
			w := do(h, http.MethodPost, "/games/g2/guesses", `{"words":["a"]}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decodeError(w).Outcome, ShouldBeNil)

			deps.submitErr = mailbox.ErrWrongKind
			w = do(h, http.MethodPost, "/games/g2/guesses", `{"words":["a"]}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("moves for unknown games are not found", func() {
			deps.submitErr = service.ErrGameNotFound
			w := do(h, http.MethodPost, "/games/zz/guesses", `{"words":["a"]}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("a stopped service is unavailable", func() {
			deps.submitErr = service.ErrNotStarted
			w := do(h, http.MethodPost, "/games/g2/guesses", `{"words":["a"]}`, asAnn()...)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestServerGameLog(t *testing.T) {
	Convey("Given an API handler", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{}, api.WithRateLimit(0, 0)).Handler(context.Background())

		Convey("anonymous callers read the log", func() {
			w := do(h, http.MethodGet, "/games/g1/log", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.requester, ShouldBeEmpty)
			So(w.Body.String(), ShouldContainSubstring, `"id":"g1"`)
		})

		Convey("authenticated callers read it as themselves", func() {
			w := do(h, http.MethodGet, "/games/g1", "", asAnn()...)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.requester, ShouldEqual, "ann")
		})

		Convey("bad credentials are rejected", func() {
			w := do(h, http.MethodGet, "/games/g1/log", "", api.HeaderPlayerID, "ann", api.HeaderPlayerKey, "nope")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("unknown games are not found", func() {
			w := do(h, http.MethodGet, "/games/zz/log", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w).Code, ShouldEqual, "not_found")
		})
	})
}

func TestServerLeaderboards(t *testing.T) {
	Convey("Given an API handler with a leaderboard limit of 50", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{},
			api.WithRateLimit(0, 0),
			api.WithMaxLeaderboardLimit(50),
		).Handler(context.Background())

		Convey("the default limit is used without a parameter", func() {
			w := do(h, http.MethodGet, "/leaderboards", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 10)
			So(deps.lastKind, ShouldBeEmpty)
			So(w.Body.String(), ShouldContainSubstring, `"combined"`)
		})

		Convey("a role selects one board", func() {
			w := do(h, http.MethodGet, "/leaderboards?role=spymaster&limit=5", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastKind, ShouldEqual, "spymaster")
			So(deps.lastLimit, ShouldEqual, 5)
		})

		Convey("limits outside 1..max are rejected", func() {
			for _, q := range []string{"0", "51", "abc", "-3"} {
				w := do(h, http.MethodGet, "/leaderboards?limit="+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("unknown boards are rejected", func() {
			w := do(h, http.MethodGet, "/leaderboards?role=coach", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("rank defaults to the combined board", func() {
			w := do(h, http.MethodGet, "/players/ann/rank", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastKind, ShouldEqual, "combined")
			So(w.Body.String(), ShouldContainSubstring, `"rank":1`)
		})

		Convey("rank of an unranked player is not found", func() {
			w := do(h, http.MethodGet, "/players/cat/rank?role=operative", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServerRateLimit(t *testing.T) {
	Convey("Given an API handler allowing one request per caller", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{}, api.WithRateLimit(0.001, 1)).Handler(context.Background())

		Convey("the second request of a caller is limited", func() {
			So(do(h, http.MethodGet, "/active", "").Code, ShouldEqual, http.StatusOK)
			w := do(h, http.MethodGet, "/active", "")
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeError(w).Code, ShouldEqual, "rate_limited")
		})

		Convey("players are limited separately from addresses", func() {
			So(do(h, http.MethodGet, "/active", "").Code, ShouldEqual, http.StatusOK)
			w := do(h, http.MethodGet, "/players/ann/status", "", asAnn()...)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("a caller claiming a player's id without its key spends its address bucket", func() {
			forged := []string{api.HeaderPlayerID, "ann", api.HeaderPlayerKey, "guess"}
			So(do(h, http.MethodGet, "/players/ann/status", "", forged...).Code, ShouldEqual, http.StatusUnauthorized)
			So(do(h, http.MethodGet, "/players/ann/status", "", asAnn()...).Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodGet, "/players/ann/status", "", forged...).Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("rotating claimed ids does not reset the limit", func() {
			for i, id := range []string{"x1", "x2", "x3", "x4"} {
				w := do(h, http.MethodGet, "/players/"+id+"/status", "",
					api.HeaderPlayerID, id, api.HeaderPlayerKey, "k")
				if i == 0 {
					So(w.Code, ShouldEqual, http.StatusUnauthorized)
				} else {
					So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				}
			}
		})
	})
}
