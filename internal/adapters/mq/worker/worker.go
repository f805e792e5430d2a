package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/codenames/internal/adapters/mq/queue"
	"github.com/okian/codenames/internal/domain/model"
	"github.com/okian/codenames/pkg/logger"
	"github.com/okian/codenames/pkg/metrics"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
	laneBuffer            = 64
	abortGrace            = time.Second
)

var errMalformedJob = errors.New("malformed job")

// Job is one store write.
type Job = queue.Job

// Writer is the part of the store the workers write through.
type Writer interface {
	SavePlayer(ctx context.Context, p *model.Player) error
	SaveGame(ctx context.Context, g *model.GameRecord) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until its queue is drained or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker writes jobs one at a time, retrying each until it succeeds
// or the worker is stopped.
type InMemoryWorker struct {
	queue  Queue
	writer Writer
	name   string

	initialBackoff time.Duration
	maxBackoff     time.Duration
	active         *atomic.Int64
	dropped        *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, writer Writer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:          q,
		writer:         writer,
		name:           "persist-worker",
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		active:         &atomic.Int64{},
		dropped:        &atomic.Int64{},
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes jobs until the queue channel closes, ctx is done or the
// worker is shut down.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.dropped.Add(1)
				w.logger.Error(ctx, "job dropped", logger.String("key", job.Key()), logger.Error(err))
				metrics.RecordError("persist", "dropped")
			}
		}
	}
}

// Dropped returns how many jobs this worker gave up on.
func (w *InMemoryWorker) Dropped() int64 { return w.dropped.Load() }

// Shutdown stops the worker, abandoning a job still being retried.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// process writes job, backing off exponentially between attempts. Malformed
// jobs are not retried.
func (w *InMemoryWorker) process(ctx context.Context, job Job) error {
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() { metrics.UpdateWorkerActiveCount(int(w.active.Add(-1))) }()

	backoff := w.initialBackoff
	for attempt := 1; ; attempt++ {
		start := time.Now()
		err := w.write(ctx, job)
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.RecordPersistWrite(string(job.Kind), result, time.Since(start).Seconds())
		if err == nil {
			return nil
		}
		if errors.Is(err, errMalformedJob) {
			return err
		}

		w.logger.Warn(ctx, "persistence write failed, retrying",
			logger.String("key", job.Key()),
			logger.Int("attempt", attempt),
			logger.Duration("backoff", backoff),
			logger.Error(err),
		)
		metrics.RecordPersistRetry()

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		case <-w.shutdown:
			timer.Stop()
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		case <-timer.C:
		}
		backoff = min(backoff*2, w.maxBackoff)
	}
}

func (w *InMemoryWorker) write(ctx context.Context, job Job) error {
	switch {
	case job.Kind == model.JobGame && job.Game != nil:
		return w.writer.SaveGame(ctx, job.Game)
	case job.Kind == model.JobPlayer && job.Player != nil:
		return w.writer.SavePlayer(ctx, job.Player)
	default:
		return fmt.Errorf("%w: %q", errMalformedJob, job.Key())
	}
}

// lane feeds one worker of a Pool.
type lane chan Job

func (l lane) Dequeue(context.Context) <-chan Job { return l }

// Pool writes the jobs of one queue with several workers. Every job for a
// record goes to the same worker, so writes to one record land in the order
// they were queued even when some of them are retried.
type Pool struct {
	workers []*InMemoryWorker
	lanes   []lane
	queue   Queue
	logger  logger.Logger

	started   atomic.Bool
	cancel    context.CancelFunc
	routed    chan struct{}
	abort     chan struct{}
	abortOnce sync.Once
	dropped   *atomic.Int64
}

// NewPool creates workerCount workers. A non-positive count uses one per CPU.
func NewPool(workerCount int, q Queue, writer Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		lanes:   make([]lane, workerCount),
		queue:   q,
		logger:  logger.Get().Named("persist-pool"),
		routed:  make(chan struct{}),
		abort:   make(chan struct{}),
		dropped: &atomic.Int64{},
	}
	active := &atomic.Int64{}
	for i := range workerCount {
		p.lanes[i] = make(lane, laneBuffer)
		name := "persist-worker-" + strconv.Itoa(i)
		wopts := append([]Option{WithName(name)}, opts...)
		w := NewInMemoryWorker(p.lanes[i], writer, wopts...)
		w.active = active
		w.dropped = p.dropped
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start starts the workers and the router that feeds them. ctx should outlive
// the producers: Shutdown, not ctx, is the normal way to stop the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	wctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for _, w := range p.workers {
		go w.Run(wctx)
	}
	go p.route(ctx)
}

// route hands every queued job to the lane of its record.
func (p *Pool) route(ctx context.Context) {
	defer close(p.routed)
	defer func() {
		for _, l := range p.lanes {
			close(l)
		}
	}()

	for job := range p.queue.Dequeue(ctx) {
		select {
		case p.lanes[p.laneOf(job)] <- job:
		case <-p.abort:
			p.drop(ctx, job)
		}
	}
}

func (p *Pool) laneOf(job Job) int {
	return int(xxhash.Sum64String(job.Key()) % uint64(len(p.lanes)))
}

func (p *Pool) drop(ctx context.Context, job Job) {
	p.dropped.Add(1)
	metrics.RecordError("persist", "dropped")
	p.logger.Error(ctx, "job dropped", logger.String("key", job.Key()))
}

// Dropped returns how many jobs were given up on without being written.
func (p *Pool) Dropped() int64 { return p.dropped.Load() }

// Shutdown closes the queue and waits until every queued job is written.
// When ctx ends first the remaining jobs are abandoned, counted and logged.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !p.started.Load() {
		return nil
	}

	if p.wait(ctx.Done()) {
		return nil
	}

	p.logger.Warn(ctx, "persist pool shutdown timed out, abandoning unwritten jobs")
	p.abortOnce.Do(func() { close(p.abort) })
	for _, w := range p.workers {
		w.stop()
	}
	p.cancel()

	gctx, gcancel := context.WithTimeout(context.WithoutCancel(ctx), abortGrace)
	defer gcancel()
	if p.wait(gctx.Done()) {
		for _, l := range p.lanes {
			for job := range l {
				p.drop(ctx, job)
			}
		}
	}

	n := p.dropped.Load()
	p.logger.Error(ctx, "persistence jobs unwritten at shutdown", logger.Int("jobs", int(n)))
	return fmt.Errorf("persist pool shutdown: %d jobs unwritten: %w", n, ctx.Err())
}

// wait reports whether the router and every worker finished before stop.
func (p *Pool) wait(stop <-chan struct{}) bool {
	select {
	case <-p.routed:
	case <-stop:
		return false
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-stop:
			return false
		}
	}
	return true
}
