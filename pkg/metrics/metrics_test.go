package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("arena"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors are registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.gamesStarted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make(map[string]bool)
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_arena_games_started_total"], ShouldBeTrue)
			})
		})

		Convey("When registering the same names twice", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		m := globalManager

		Convey("Game counters move", func() {
			before := testutil.ToFloat64(m.gamesStarted)
			RecordGameStarted()
			So(testutil.ToFloat64(m.gamesStarted), ShouldEqual, before+1)

			completed := testutil.ToFloat64(m.gamesCompleted.WithLabelValues("assassin"))
			RecordGameCompleted("assassin", 12)
			So(testutil.ToFloat64(m.gamesCompleted.WithLabelValues("assassin")), ShouldEqual, completed+1)
		})

		Convey("Forfeits are labelled by cause", func() {
			before := testutil.ToFloat64(m.turnForfeits.WithLabelValues("timeout"))
			RecordTurnForfeit("timeout")
			RecordTurnForfeit("timeout")
			So(testutil.ToFloat64(m.turnForfeits.WithLabelValues("timeout")), ShouldEqual, before+2)
		})

		Convey("Gauges take the last value", func() {
			UpdatePoolSize(7)
			UpdateActiveGames(3)
			UpdateQueueSize(11)
			So(testutil.ToFloat64(m.poolSize), ShouldEqual, 7)
			So(testutil.ToFloat64(m.activeGames), ShouldEqual, 3)
			So(testutil.ToFloat64(m.queueSize), ShouldEqual, 11)
		})

		Convey("Helpers are no-ops when disabled", func() {
			m.enabled = false
			defer func() { m.enabled = true }()
			before := testutil.ToFloat64(m.gamesStarted)
			RecordGameStarted()
			So(testutil.ToFloat64(m.gamesStarted), ShouldEqual, before)
		})

		Convey("The custom registry is exposed", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

func TestMetricsConfigure(t *testing.T) {
	Convey("Given the global manager", t, func() {
		prevManager, prevRegistry := globalManager, customRegistry
		defer func() { globalManager, customRegistry = prevManager, prevRegistry }()

		Convey("Configure rebuilds it under the configured names", func() {
			Configure(WithNamespace("bots"), WithSubsystem("lab"), WithHistogramBuckets([]float64{1, 2}))
			So(GetRegistry(), ShouldNotPointTo, prevRegistry)

			RecordGameStarted()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make(map[string]bool)
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["bots_lab_games_started_total"], ShouldBeTrue)
			So(globalManager.histogramBuckets, ShouldResemble, []float64{1, 2})
		})

		Convey("Configure can switch recording off", func() {
			Configure(WithMetricsEnabled(false))
			So(get(), ShouldBeNil)
			RecordGameStarted()
			So(testutil.ToFloat64(globalManager.gamesStarted), ShouldEqual, 0)
		})
	})
}
