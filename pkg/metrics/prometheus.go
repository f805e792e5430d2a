package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the arena.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Games
	gamesStarted   prometheus.Counter
	gamesCompleted *prometheus.CounterVec
	gameDuration   prometheus.Histogram
	activeGames    prometheus.Gauge

	// Turns
	moves        *prometheus.CounterVec
	turnForfeits *prometheus.CounterVec
	moveLatency  *prometheus.HistogramVec
	lateReplies  prometheus.Counter

	// Pool and players
	poolSize          prometheus.Gauge
	registeredPlayers prometheus.Gauge
	ratingUpdates     *prometheus.CounterVec

	// Persistence queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	persistWrites      *prometheus.CounterVec
	persistRetries     prometheus.Counter
	persistLatency     prometheus.Histogram
	workerCount        prometheus.Gauge
	workerActiveCount  prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before GetRegistry is captured.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	all := append(append([]Option{}, opts...), WithPrometheusRegistry(customRegistry))
	globalManager = NewManager(all...)
}

// NewManager creates a metrics manager. Collectors register on the
// configured registry, prometheus.DefaultRegisterer unless overridden.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "codenames",
		subsystem:        "arena",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	// Game durations span minutes, move latencies seconds.
	gameBuckets := prometheus.ExponentialBuckets(1, 2, 12)
	moveBuckets := prometheus.ExponentialBuckets(0.005, 2, 16)

	m.gamesStarted = m.counter("games_started_total", "Total number of games started")
	m.gamesCompleted = m.counterVec("games_completed_total", "Completed games by end reason", "reason")
	m.gameDuration = m.histogram("game_duration_seconds", "Wall-clock duration of completed games", gameBuckets)
	m.activeGames = m.gauge("active_games", "Games currently in progress")

	m.moves = m.counterVec("moves_total", "Moves applied by kind and result", "kind", "result")
	m.turnForfeits = m.counterVec("turn_forfeits_total", "Forfeited turns by cause", "cause")
	m.moveLatency = m.histogramVec("move_latency_seconds", "Time from move request to reply", moveBuckets, "kind")
	m.lateReplies = m.counter("late_replies_total", "Replies discarded because their request was no longer pending")

	m.poolSize = m.gauge("pool_size", "Players waiting in the pool")
	m.registeredPlayers = m.gauge("registered_players", "Players known to the arena")
	m.ratingUpdates = m.counterVec("rating_updates_total", "Rating updates by role", "role")

	m.queueSize = m.gauge("persist_queue_size", "Persistence jobs waiting in the queue")
	m.queueCapacity = m.gauge("persist_queue_capacity", "Capacity of the persistence queue")
	m.queueUtilization = m.gauge("persist_queue_utilization_ratio", "Persistence queue utilization (0-1)")
	m.persistWrites = m.counterVec("persist_writes_total", "Persistence writes by record kind and result", "kind", "result")
	m.persistRetries = m.counter("persist_retries_total", "Persistence writes retried after a store failure")
	m.persistLatency = m.histogram("persist_latency_seconds", "Store write latency", m.histogramBuckets)
	m.workerCount = m.gauge("worker_count", "Configured persistence workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Persistence workers currently running")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds", "HTTP request duration",
		m.histogramBuckets, "endpoint", "method", "status_code")
	m.rateLimited = m.counter("http_rate_limited_total", "Requests rejected by the per-player rate limiter")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "GC pause time in milliseconds",
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})
}

func get() *Manager {
	if globalManager == nil || !globalManager.enabled {
		return nil
	}
	return globalManager
}

// RecordGameStarted increments the games started counter.
func RecordGameStarted() {
	if m := get(); m != nil {
		m.gamesStarted.Inc()
	}
}

// RecordGameCompleted counts a completed game and observes its duration.
func RecordGameCompleted(reason string, durationSeconds float64) {
	if m := get(); m != nil {
		m.gamesCompleted.WithLabelValues(reason).Inc()
		m.gameDuration.Observe(durationSeconds)
	}
}

// UpdateActiveGames sets the number of games in progress.
func UpdateActiveGames(count int) {
	if m := get(); m != nil {
		m.activeGames.Set(float64(count))
	}
}

// RecordMove counts an applied move. result is "ok", "illegal" or "rejected".
func RecordMove(kind, result string) {
	if m := get(); m != nil {
		m.moves.WithLabelValues(kind, result).Inc()
	}
}

// RecordTurnForfeit counts a forfeited turn by cause.
func RecordTurnForfeit(cause string) {
	if m := get(); m != nil {
		m.turnForfeits.WithLabelValues(cause).Inc()
	}
}

// RecordMoveLatency observes the time a bot took to answer.
func RecordMoveLatency(kind string, seconds float64) {
	if m := get(); m != nil {
		m.moveLatency.WithLabelValues(kind).Observe(seconds)
	}
}

// RecordLateReply counts a discarded late or duplicate reply.
func RecordLateReply() {
	if m := get(); m != nil {
		m.lateReplies.Inc()
	}
}

// UpdatePoolSize sets the number of waiting players.
func UpdatePoolSize(size int) {
	if m := get(); m != nil {
		m.poolSize.Set(float64(size))
	}
}

// UpdateRegisteredPlayers sets the number of known players.
func UpdateRegisteredPlayers(count int) {
	if m := get(); m != nil {
		m.registeredPlayers.Set(float64(count))
	}
}

// RecordRatingUpdate counts one rating update for role.
func RecordRatingUpdate(role string) {
	if m := get(); m != nil {
		m.ratingUpdates.WithLabelValues(role).Inc()
	}
}

// UpdateQueueSize sets the current persistence queue size.
func UpdateQueueSize(size int) {
	if m := get(); m != nil {
		m.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the persistence queue capacity.
func UpdateQueueCapacity(capacity int) {
	if m := get(); m != nil {
		m.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if m := get(); m != nil {
		m.queueUtilization.Set(utilization)
	}
}

// RecordPersistWrite counts a store write and observes its latency.
func RecordPersistWrite(kind, result string, seconds float64) {
	if m := get(); m != nil {
		m.persistWrites.WithLabelValues(kind, result).Inc()
		m.persistLatency.Observe(seconds)
	}
}

// RecordPersistRetry counts a retried store write.
func RecordPersistRetry() {
	if m := get(); m != nil {
		m.persistRetries.Inc()
	}
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if m := get(); m != nil {
		m.workerCount.Set(float64(count))
	}
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	if m := get(); m != nil {
		m.workerActiveCount.Set(float64(count))
	}
}

// RecordHTTPRequest records an HTTP request and its duration in seconds.
func RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	if m := get(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
	}
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	if m := get(); m != nil {
		m.rateLimited.Inc()
	}
}

// RecordError records an error with component and type labels.
func RecordError(component, errorType string) {
	if m := get(); m != nil {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := get(); m != nil {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if m := get(); m != nil {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records a GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := get(); m != nil {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
