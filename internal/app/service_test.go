package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	service "github.com/okian/codenames/internal/app"
	"github.com/okian/codenames/internal/adapters/mailbox"
	"github.com/okian/codenames/internal/adapters/repository"
	"github.com/okian/codenames/internal/config"
	"github.com/okian/codenames/internal/domain/board"
	"github.com/okian/codenames/internal/domain/game"
	"github.com/okian/codenames/internal/domain/leaderboard"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/internal/domain/outcome"
	"github.com/okian/codenames/internal/domain/pool"
	"github.com/okian/codenames/internal/domain/turn"
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

var words = []string{
	"apple", "bread", "chair", "dance", "eagle", "flame", "grape", "house", "igloo",
	"juice", "knife", "lemon", "mango", "night", "olive", "piano", "queen", "river",
	"snake", "tiger", "umbra", "violin", "whale", "xenon", "yacht", "zebra",
}

var bots = []string{"ann", "bob", "cat", "dan"}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.TurnTimeoutMS = 5000
	cfg.MatchIntervalMS = 10
	cfg.PersistWorkers = 1
	cfg.MaxActiveGames = 1
	return cfg
}

func newService(cfg *config.Config, opts ...service.Option) *service.Service {
	var n atomic.Int64
	base := []service.Option{
		service.WithWords(words),
		service.WithRand(rand.New(rand.NewPCG(1, 2))),
		service.WithStore(repository.NewMemoryStore()),
		service.WithGameIDs(func() string { return fmt.Sprintf("game-%d", n.Add(1)) }),
	}
	svc, err := service.New(cfg, append(base, opts...)...)
	if err != nil {
		panic(err)
	}
	return svc
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// awaited finds the bot whose move is requested.
func awaited(svc *service.Service, ids []string) (string, turn.Request) {
	var who string
	var req turn.Request
	eventually(func() bool {
		for _, id := range ids {
			if r, ok := svc.PendingMove(id); ok {
				who, req = id, r
				return true
			}
		}
		return false
	})
	return who, req
}

func assassin(v game.View) string {
	for i, c := range v.Colors {
		if c != nil && *c == board.Assassin {
			return v.Words[i]
		}
	}
	return ""
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := newService(testConfig())

		Convey("It refuses players before starting", func() {
			_, err := svc.Join(ctx, "ann", "k")
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("It cannot be started again", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(errors.Is(svc.Start(ctx), service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given a word list that is too short", t, func() {
		_, err := service.New(testConfig(), service.WithWords(words[:10]))

		Convey("New fails", func() {
			So(errors.Is(err, board.ErrInsufficientCorpus), ShouldBeTrue)
		})
	})
}

func TestService_Join(t *testing.T) {
	Convey("Given a started service with a key table", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.PlayerKeys = map[string]string{"ann": "secret"}
		svc := newService(cfg)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("A wrong key is rejected", func() {
			_, err := svc.Join(ctx, "ann", "guess")
			So(errors.Is(err, service.ErrUnauthorized), ShouldBeTrue)
			_, err = svc.Join(ctx, "zed", "secret")
			So(errors.Is(err, service.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("A malformed id is rejected", func() {
			_, err := svc.Join(ctx, "no spaces", "secret")
			So(errors.Is(err, service.ErrInvalidPlayerID), ShouldBeTrue)
		})

		Convey("The right key registers the player and it waits", func() {
			p, err := svc.Join(ctx, "ann", "secret")
			So(err, ShouldBeNil)
			So(p.Status, ShouldEqual, model.StatusWaiting)
			So(p.Spymaster.Rating, ShouldEqual, 1500)

			_, err = svc.Join(ctx, "ann", "secret")
			So(err, ShouldBeNil)
			So(svc.GetStats()["pool_size"], ShouldEqual, 1)

			Convey("And leaving makes it idle", func() {
				So(svc.Leave(ctx, "ann"), ShouldBeNil)
				st, err := svc.Status(ctx, "ann")
				So(err, ShouldBeNil)
				So(st.Status, ShouldEqual, model.StatusIdle)
				So(st.Waiting, ShouldBeFalse)
			})

			Convey("And a disconnect marks it disconnected", func() {
				So(svc.Disconnect(ctx, "ann"), ShouldBeNil)
				p, err := svc.Player("ann")
				So(err, ShouldBeNil)
				So(p.Status, ShouldEqual, model.StatusDisconnected)
			})
		})

		Convey("Unknown players cannot leave", func() {
			So(errors.Is(svc.Leave(ctx, "zed"), outcome.ErrUnknownPlayer), ShouldBeTrue)
		})
	})
}

func TestService_PlaysAGame(t *testing.T) {
	Convey("Given four bots in the pool", t, func() {
		ctx := context.Background()
		svc := newService(testConfig())
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		for _, id := range bots {
			_, err := svc.Join(ctx, id, "key")
			So(err, ShouldBeNil)
		}
		So(eventually(func() bool { return svc.ActiveCount() == 1 }), ShouldBeTrue)

		spymaster, clueReq := awaited(svc, bots)
		So(clueReq.Kind, ShouldEqual, turn.KindClue)
		So(clueReq.GameID, ShouldEqual, "game-1")

		st, err := svc.Status(ctx, spymaster)
		So(err, ShouldBeNil)
		So(st.Game.Team, ShouldEqual, model.Red)
		So(st.Game.Role, ShouldEqual, model.Spymaster)
		So(st.Game.WaitingOn, ShouldEqual, spymaster)
		So(st.Pending.RequestID, ShouldEqual, clueReq.ID)
		operative := st.Game.Teammate

		Convey("Moves out of turn are rejected without touching the game", func() {
			_, err := svc.SubmitGuesses(ctx, "game-1", operative, "", []string{"apple"})
			So(errors.Is(err, game.ErrNotYourTurn), ShouldBeTrue)
			_, err = svc.SubmitGuesses(ctx, "game-1", spymaster, "", []string{"apple"})
			So(errors.Is(err, mailbox.ErrWrongKind), ShouldBeTrue)
			_, err = svc.SubmitClue(ctx, "game-9", spymaster, "", "quartz", 1)
			So(errors.Is(err, service.ErrGameNotFound), ShouldBeTrue)
			_, err = svc.Join(ctx, spymaster, "key")
			So(errors.Is(err, pool.ErrAlreadyInGame), ShouldBeTrue)

			log, err := svc.GameLog(ctx, "game-1", operative)
			So(err, ShouldBeNil)
			So(log.Events, ShouldHaveLength, 1)
			So(log.Colors[0], ShouldBeNil)
		})

		Convey("When red clues and then guesses the assassin", func() {
			out, err := svc.SubmitClue(ctx, "game-1", spymaster, clueReq.ID, "quartz", 2)
			So(err, ShouldBeNil)
			So(out.Phase, ShouldEqual, model.AwaitingGuess)

			who, guessReq := awaited(svc, []string{operative})
			So(who, ShouldEqual, operative)
			So(guessReq.View.Clue, ShouldResemble, &model.Clue{Word: "quartz", Count: 2})

			out, err = svc.SubmitGuesses(ctx, "game-1", operative, guessReq.ID, []string{assassin(clueReq.View)})
			So(err, ShouldBeNil)
			So(out.Done, ShouldBeTrue)
			So(out.Winner, ShouldEqual, model.Blue)

			So(eventually(func() bool {
				done, _ := svc.CompletedGames(ctx)
				return slices.Contains(done, "game-1")
			}), ShouldBeTrue)

			Convey("Ratings move in the roles played", func() {
				p, err := svc.Player(spymaster)
				So(err, ShouldBeNil)
				So(p.Spymaster.Rating, ShouldEqual, 1490)
				So(p.Spymaster.Losses, ShouldEqual, 1)
				So(p.Operative.Rating, ShouldEqual, 1500)

				top, err := svc.Leaderboards(ctx, "spymaster", 10)
				So(err, ShouldBeNil)
				So(top[leaderboard.Spymaster], ShouldHaveLength, 4)
				So(top[leaderboard.Spymaster][0].Rating, ShouldEqual, 1510)
				So(top[leaderboard.Spymaster][3].PlayerID, ShouldEqual, spymaster)
			})

			Convey("A late reply is refused", func() {
				_, err := svc.SubmitGuesses(ctx, "game-1", operative, guessReq.ID, []string{"apple"})
				So(errors.Is(err, game.ErrGameOver), ShouldBeTrue)
			})

			Convey("The log reveals the key to anyone", func() {
				log, err := svc.GameLog(ctx, "game-1", "stranger")
				So(err, ShouldBeNil)
				So(log.Winner, ShouldEqual, model.Blue)
				So(log.EndReason, ShouldEqual, model.EndAssassin)
				So(log.Colors[0], ShouldNotBeNil)
			})

			Convey("All four return to the pool and play again", func() {
				So(eventually(func() bool {
					for _, id := range bots {
						st, err := svc.Status(ctx, id)
						if err != nil || st.Game == nil || st.Game.GameID != "game-2" {
							return false
						}
					}
					return true
				}), ShouldBeTrue)
				for _, id := range bots {
					st, err := svc.Status(ctx, id)
					So(err, ShouldBeNil)
					So(st.EndedGames, ShouldContain, "game-1")
					So(st.EndedGames, ShouldNotContain, "game-2")
				}
			})
		})
	})
}

func TestService_Timeouts(t *testing.T) {
	Convey("Given a strict service whose first spymaster never answers", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.TurnTimeoutMS = 30
		cfg.MaxConsecutiveForfeits = 1
		svc := newService(cfg)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		for _, id := range bots {
			_, err := svc.Join(ctx, id, "key")
			So(err, ShouldBeNil)
		}
		So(eventually(func() bool {
			done, _ := svc.CompletedGames(ctx)
			return slices.Contains(done, "game-1")
		}), ShouldBeTrue)

		Convey("The game is lost by forfeit and the offender is removed", func() {
			log, err := svc.GameLog(ctx, "game-1", "ann")
			So(err, ShouldBeNil)
			spymaster := log.Roster.Red.Spymaster
			So(log.Winner, ShouldEqual, model.Blue)
			So(log.EndReason, ShouldEqual, model.EndForfeit)

			st, err := svc.Status(ctx, spymaster)
			So(err, ShouldBeNil)
			So(st.Status, ShouldEqual, model.StatusRemoved)
			So(st.Waiting, ShouldBeFalse)
			So(svc.GetStats()["pool_size"], ShouldEqual, 3)
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(testConfig())
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Unknown games and players are not found", func() {
			_, err := svc.GameLog(ctx, "nope", "ann")
			So(errors.Is(err, service.ErrGameNotFound), ShouldBeTrue)
			_, err = svc.Status(ctx, "nope")
			So(errors.Is(err, outcome.ErrUnknownPlayer), ShouldBeTrue)
			_, err = svc.PlayerGames(ctx, "nope")
			So(errors.Is(err, outcome.ErrUnknownPlayer), ShouldBeTrue)
		})

		Convey("Leaderboard queries are validated", func() {
			_, err := svc.Leaderboards(ctx, "", 0)
			So(errors.Is(err, leaderboard.ErrInvalidLimit), ShouldBeTrue)
			_, err = svc.Leaderboards(ctx, "", 101)
			So(errors.Is(err, leaderboard.ErrInvalidLimit), ShouldBeTrue)
			_, err = svc.Leaderboards(ctx, "captain", 10)
			So(errors.Is(err, leaderboard.ErrUnknownBoard), ShouldBeTrue)

			all, err := svc.Leaderboards(ctx, "", 10)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 3)
		})

		Convey("A registered player is ranked on every board", func() {
			_, err := svc.Join(ctx, "ann", "key")
			So(err, ShouldBeNil)
			e, err := svc.Rank(ctx, "combined", "ann")
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 1)
			So(e.Rating, ShouldEqual, 1500)
		})
	})
}

func TestService_Restore(t *testing.T) {
	Convey("Given a store written by a previous run", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()

		first := newService(testConfig(), service.WithStore(store))
		So(first.Start(ctx), ShouldBeNil)
		_, err := first.Join(ctx, "ann", "key")
		So(err, ShouldBeNil)
		So(first.Stop(ctx), ShouldBeNil)

		Convey("A new service restores the player as idle", func() {
			second := newService(testConfig(), service.WithStore(store))
			So(second.Start(ctx), ShouldBeNil)
			defer func() { _ = second.Stop(ctx) }()

			p, err := second.Player("ann")
			So(err, ShouldBeNil)
			So(p.Status, ShouldEqual, model.StatusIdle)
			So(second.GetStats()["pool_size"], ShouldEqual, 0)
		})
	})
}

func TestService_StopPersistsAbandonedGames(t *testing.T) {
	Convey("Given a game in progress when the service stops", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		cfg := testConfig()
		cfg.PersistWorkers = 4
		svc := newService(cfg, service.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)

		for _, id := range bots {
			_, err := svc.Join(ctx, id, "key")
			So(err, ShouldBeNil)
		}
		_, req := awaited(svc, bots)
		So(req.GameID, ShouldEqual, "game-1")

		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		So(svc.Stop(sctx), ShouldBeNil)

		Convey("The game is stored as abandoned without rating changes", func() {
			rec, err := store.LoadGame(ctx, "game-1")
			So(err, ShouldBeNil)
			So(rec.Phase, ShouldEqual, model.Completed)
			So(rec.EndReason, ShouldEqual, model.EndAbandoned)
			So(rec.EndedAt, ShouldNotBeNil)
			So(rec.Ratings, ShouldBeEmpty)

			completed, err := store.ListCompletedGames(ctx)
			So(err, ShouldBeNil)
			So(completed, ShouldResemble, []string{"game-1"})
		})

		Convey("No player is stored as still playing", func() {
			for _, id := range bots {
				p, err := store.LoadPlayer(ctx, id)
				So(err, ShouldBeNil)
				So(p.Status, ShouldNotEqual, model.StatusPlaying)
				So(p.CurrentGame, ShouldBeEmpty)
			}
		})

		Convey("No write was dropped", func() {
			So(svc.GetStats()["persist_dropped"], ShouldEqual, int64(0))
		})
	})
}
