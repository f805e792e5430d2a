package pool_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/okian/codenames/internal/domain/pool"
	"github.com/okian/codenames/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func joinAll(p *pool.Pool, ids ...string) {
	for _, id := range ids {
		So(p.Join(id), ShouldBeNil)
	}
}

func TestJoinLeave(t *testing.T) {
	Convey("Given an empty pool", t, func() {
		p := pool.New(pool.WithStrategy(pool.FIFO))

		Convey("Join is idempotent", func() {
			joinAll(p, "a", "a", "b")
			So(p.Waiting(), ShouldResemble, []string{"a", "b"})
		})

		Convey("Leave removes a waiting player", func() {
			joinAll(p, "a", "b")
			So(p.Leave("a"), ShouldBeFalse)
			So(p.Waiting(), ShouldResemble, []string{"b"})
			So(p.Leave("nobody"), ShouldBeFalse)
		})

		Convey("Reserve with fewer than four players fails without mutation", func() {
			joinAll(p, "a", "b", "c")
			_, err := p.Reserve("g1")
			So(errors.Is(err, pool.ErrInsufficientPlayers), ShouldBeTrue)
			So(errors.Is(err, pool.ErrInconsistent), ShouldBeTrue)
			So(p.Size(), ShouldEqual, 3)
			So(p.ActiveGames(), ShouldEqual, 0)
		})
	})
}

func TestReserveRelease(t *testing.T) {
	Convey("Given five waiting players in FIFO mode", t, func() {
		ctx := context.Background()
		p := pool.New(pool.WithStrategy(pool.FIFO), pool.WithRand(rand.New(rand.NewPCG(1, 2))))
		joinAll(p, "a", "b", "c", "d", "e")

		roster, err := p.Reserve("g1")
		So(err, ShouldBeNil)

		Convey("The four longest-waiting players are seated in distinct roles", func() {
			So(roster.Players(), ShouldHaveLength, 4)
			So(roster.Players(), ShouldContain, "a")
			So(roster.Players(), ShouldContain, "d")
			So(roster.Players(), ShouldNotContain, "e")
			So(p.Waiting(), ShouldResemble, []string{"e"})
			g, ok := p.GameOf("b")
			So(ok, ShouldBeTrue)
			So(g, ShouldEqual, "g1")
		})

		Convey("Joining while in a game is rejected", func() {
			err := p.Join("a")
			So(errors.Is(err, pool.ErrAlreadyInGame), ShouldBeTrue)
			So(p.Waiting(), ShouldResemble, []string{"e"})
		})

		Convey("A game id cannot be reserved twice", func() {
			joinAll(p, "f", "g", "h")
			_, err := p.Reserve("g1")
			So(errors.Is(err, pool.ErrDuplicateGame), ShouldBeTrue)
		})

		Convey("Release returns players to the pool except leavers and dropped", func() {
			So(p.Leave("a"), ShouldBeTrue)
			back, err := p.Release(ctx, "g1", "b")
			So(err, ShouldBeNil)
			So(back, ShouldHaveLength, 2)
			So(back, ShouldNotContain, "a")
			So(back, ShouldNotContain, "b")
			So(p.Size(), ShouldEqual, 3)
			_, ok := p.GameOf("c")
			So(ok, ShouldBeFalse)
			So(p.ActiveGames(), ShouldEqual, 0)

			_, err = p.Release(ctx, "g1")
			So(errors.Is(err, pool.ErrUnknownGame), ShouldBeTrue)
		})
	})
}

func TestExpire(t *testing.T) {
	Convey("Given a pool with a controllable clock", t, func() {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		p := pool.New(pool.WithClock(func() time.Time { return now }))
		joinAll(p, "old")
		now = now.Add(4 * time.Minute)
		joinAll(p, "fresh", "touched")
		now = now.Add(2 * time.Minute)
		p.Touch("touched")

		Convey("Players idle past the timeout are dropped", func() {
			gone := p.Expire(context.Background(), 5*time.Minute)
			So(gone, ShouldResemble, []string{"old"})
			So(p.Waiting(), ShouldResemble, []string{"fresh", "touched"})
		})
	})
}

func TestNoDoubleAssignment(t *testing.T) {
	Convey("Given concurrent joins and reservations", t, func() {
		p := pool.New(pool.WithRand(rand.New(rand.NewPCG(7, 9))))
		const players = 200

		var wg sync.WaitGroup
		var mu sync.Mutex
		seated := make(map[string]string)
		var conflicts []string

		for i := 0; i < players; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = p.Join(fmt.Sprintf("p%03d", i))
			}(i)
		}
		for i := 0; i < 80; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				gameID := fmt.Sprintf("g%02d", i)
				roster, err := p.Reserve(gameID)
				if err != nil {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				for _, id := range roster.Players() {
					if prev, ok := seated[id]; ok {
						conflicts = append(conflicts, id+" in "+prev+" and "+gameID)
					}
					seated[id] = gameID
				}
			}(i)
		}
		wg.Wait()

		Convey("No player is in two games and every game has four distinct players", func() {
			So(conflicts, ShouldBeEmpty)
			So(len(seated), ShouldEqual, p.ActiveGames()*pool.PlayersPerGame)
			So(len(seated)+p.Size(), ShouldEqual, players)
		})
	})
}
