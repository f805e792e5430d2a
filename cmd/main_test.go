package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	service "github.com/okian/codenames/internal/app"
	"github.com/okian/codenames/internal/config"
	"github.com/okian/codenames/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestService(ctx context.Context) (*config.Config, *service.Service) {
	cfg := config.New()
	cfg.PersistWorkers = 1
	cfg.MatchIntervalMS = 10
	svc, err := service.New(cfg)
	convey.So(err, convey.ShouldBeNil)
	convey.So(svc.Start(ctx), convey.ShouldBeNil)
	return cfg, svc
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given arena environment variables", t, func() {
		_ = os.Setenv("ARENA_ADDR", ":8080")
		_ = os.Setenv("ARENA_TURN_TIMEOUT_MS", "1500")
		_ = os.Setenv("ARENA_PERSIST_WORKERS", "4")
		defer func() {
			_ = os.Unsetenv("ARENA_ADDR")
			_ = os.Unsetenv("ARENA_TURN_TIMEOUT_MS")
			_ = os.Unsetenv("ARENA_PERSIST_WORKERS")
		}()

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.TurnTimeoutMS, convey.ShouldEqual, 1500)
			convey.So(cfg.PersistWorkers, convey.ShouldEqual, 4)
		})
	})

	convey.Convey("Given an empty listen address", t, func() {
		_ = os.Setenv("ARENA_ADDR", "")
		defer func() { _ = os.Unsetenv("ARENA_ADDR") }()

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMainHandler(t *testing.T) {
	convey.Convey("Given the assembled HTTP handler", t, func() {
		ctx := context.Background()
		cfg, svc := newTestService(ctx)
		defer func() { _ = svc.Stop(ctx) }()
		h := newHandler(ctx, cfg, svc)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("The API answers health checks", func() {
			w := get("/healthz")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("The docs are mounted", func() {
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("The websocket endpoint refuses anonymous callers", func() {
			convey.So(get("/ws").Code, convey.ShouldEqual, http.StatusUnauthorized)
		})

		convey.Convey("A bot can join and read its status", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/players/ann/join?player_key=k", http.NoBody)
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			w = get("/players/ann/status?player_key=k")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"status":"waiting"`)

			w = get("/stats")
			convey.So(strings.Contains(w.Body.String(), `"pool_size":1`), convey.ShouldBeTrue)
		})
	})
}

func TestMainMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("System metrics update without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Service metrics update without panicking", func() {
			ctx := context.Background()
			_, svc := newTestService(ctx)
			defer func() { _ = svc.Stop(ctx) }()
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("The system updater stops with its context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}
