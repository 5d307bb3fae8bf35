package signal

import (
	"sync"

	"github.com/dkeye/Huddle/internal/domain"
	"golang.org/x/time/rate"
)

// ConnRateLimiter is a token bucket per connection. A nil limiter allows
// everything.
type ConnRateLimiter struct {
	mu       sync.Mutex
	limiters map[domain.ConnID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewConnRateLimiter(eventsPerSec float64, burst int) *ConnRateLimiter {
	return &ConnRateLimiter{
		limiters: make(map[domain.ConnID]*rate.Limiter),
		limit:    rate.Limit(eventsPerSec),
		burst:    burst,
	}
}

func (rl *ConnRateLimiter) Allow(id domain.ConnID) bool {
	if rl == nil {
		return true
	}
	rl.mu.Lock()
	l, ok := rl.limiters[id]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[id] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

// Forget drops the bucket of a terminated connection.
func (rl *ConnRateLimiter) Forget(id domain.ConnID) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	delete(rl.limiters, id)
	rl.mu.Unlock()
}
