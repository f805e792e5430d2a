package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	service "github.com/okian/codenames/internal/app"
	"github.com/okian/codenames/pkg/logger"
	"github.com/okian/codenames/pkg/metrics"
	"golang.org/x/time/rate"
)

// Credential headers. The player_id and player_key query parameters are
// accepted as well for clients that cannot set headers.
const (
	HeaderPlayerID  = "X-Player-ID"
	HeaderPlayerKey = "X-Player-Key"
	HeaderRequestID = "X-Request-Id"
)

// Authenticator checks player credentials and records liveness.
type Authenticator interface {
	Authenticate(playerID, key string) error
	Touch(playerID string)
}

type access int

const (
	public access = iota
	// authenticated routes need valid credentials.
	authenticated
	// optional routes accept anonymous callers but reject bad credentials.
	optional
)

type playerKey struct{}

// playerFrom returns the authenticated player of r, if any.
func playerFrom(r *http.Request) string {
	id, _ := r.Context().Value(playerKey{}).(string)
	return id
}

const maxBuckets = 10000

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiter hands out one token bucket per caller. It holds at most max
// buckets; buckets idle long enough to have refilled are evicted first.
type limiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	max     int
	refill  time.Duration
	now     func() time.Time
	buckets map[string]*bucket
}

func newLimiter(rps float64, burst int) *limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		max:     maxBuckets,
		refill:  time.Duration(float64(burst) / rps * float64(time.Second)),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (l *limiter) allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.max {
			l.evict(now)
		}
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// evict drops every refilled bucket, or the least recently seen one when
// none has refilled yet. Caller holds mu.
func (l *limiter) evict(now time.Time) {
	var oldest string
	for key, b := range l.buckets {
		if now.Sub(b.seen) >= l.refill {
			delete(l.buckets, key)
			continue
		}
		if oldest == "" || b.seen.Before(l.buckets[oldest].seen) {
			oldest = key
		}
	}
	if len(l.buckets) >= l.max && oldest != "" {
		delete(l.buckets, oldest)
	}
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// route wraps h with request metrics, the credential check required by
// level and per-caller rate limiting. Only an authenticated player gets its
// own bucket; everything else, failed logins included, is limited by address.
func (s *Server) route(endpoint string, h httprouter.Handle, level access) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		wrapped.Header().Set(HeaderRequestID, reqID)

		defer func() {
			code := strconv.Itoa(wrapped.statusCode)
			metrics.RecordHTTPRequest(endpoint, r.Method, code, time.Since(start).Seconds())
			if wrapped.statusCode >= http.StatusBadRequest {
				metrics.RecordError("http", endpoint+"_"+code)
			}
		}()

		var (
			playerID string
			err      error
		)
		if level != public {
			id, key := credentials(r)
			playerID, err = s.authenticate(id, key, ps.ByName("player_id"), level)
		}
		if !s.limiter.allow(callerKey(r, playerID)) {
			metrics.RecordRateLimited()
			writeError(wrapped, ErrRateLimited)
			return
		}
		if err != nil {
			s.log.Debug(r.Context(), "request rejected",
				logger.String("endpoint", endpoint),
				logger.String("request_id", reqID),
				logger.Error(err),
			)
			writeError(wrapped, err)
			return
		}
		if playerID != "" {
			s.auth.Touch(playerID)
			r = r.WithContext(context.WithValue(r.Context(), playerKey{}, playerID))
		}
		h(wrapped, r, ps)
	}
}

// authenticate resolves the calling player. The id comes from the
// credentials or, failing that, from the path. Both must agree when present.
func (s *Server) authenticate(id, key, pathID string, level access) (string, error) {
	if id == "" {
		id = pathID
	}
	if id == "" || key == "" {
		if level == optional && key == "" {
			return "", nil
		}
		return "", fmt.Errorf("%w: missing credentials", service.ErrUnauthorized)
	}
	if pathID != "" && pathID != id {
		return "", fmt.Errorf("%w: %s acting as %s", ErrForbidden, id, pathID)
	}
	if err := s.auth.Authenticate(id, key); err != nil {
		return "", err
	}
	return id, nil
}

func credentials(r *http.Request) (id, key string) {
	id = r.Header.Get(HeaderPlayerID)
	key = r.Header.Get(HeaderPlayerKey)
	q := r.URL.Query()
	if id == "" {
		id = q.Get("player_id")
	}
	if key == "" {
		key = q.Get("player_key")
	}
	return id, key
}

// callerKey picks the rate-limit bucket: the authenticated player, else the
// remote address.
func callerKey(r *http.Request, playerID string) string {
	if playerID != "" {
		return "player:" + playerID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
