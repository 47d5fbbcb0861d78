package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tansive/mockinterview/internal/common/httpx"
)

type RateLimitOptions struct {
	RequestsPerSecond float64
	Burst             int
}

const limiterIdle = 10 * time.Minute

type ownerLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	owners   map[string]*limiterEntry
	lastScan time.Time
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newOwnerLimiter(opts RateLimitOptions) *ownerLimiter {
	return &ownerLimiter{
		limit:  rate.Limit(opts.RequestsPerSecond),
		burst:  opts.Burst,
		owners: make(map[string]*limiterEntry),
	}
}

func (l *ownerLimiter) get(owner string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastScan) > limiterIdle {
		for k, e := range l.owners {
			if now.Sub(e.seen) > limiterIdle {
				delete(l.owners, k)
			}
		}
		l.lastScan = now
	}
	e, ok := l.owners[owner]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.owners[owner] = e
	}
	e.seen = now
	return e.limiter
}

// rateLimit must run after withOwner.
func (s *InterviewServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := OwnerFromContext(r.Context())
		now := time.Now()
		res := s.limiter.get(owner, now).ReserveN(now, 1)
		if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
			res.CancelAt(now)
			retry := int(delay.Seconds()) + 1
			log.Ctx(r.Context()).Warn().Int("retry_after", retry).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			httpx.ErrTooManyRequests().Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
