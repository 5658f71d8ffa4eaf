package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one in-process limiter per key and forgets keys idle
// for longer than idleTTL.
type KeyedLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	lastGC   time.Time
}

func NewKeyedLimiter(limit rate.Limit, burst int, idleTTL time.Duration) *KeyedLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

func (k *KeyedLimiter) Allow(key string) Result {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	k.collect(now)

	v, ok := k.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.visitors[key] = v
	}
	v.lastSeen = now

	reservation := v.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return Result{Limit: k.burst}
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return Result{Limit: k.burst, RetryAfter: delay}
	}
	return Result{
		Allowed:   true,
		Limit:     k.burst,
		Remaining: int(v.limiter.TokensAt(now)),
	}
}

func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.visitors)
}

func (k *KeyedLimiter) collect(now time.Time) {
	if now.Sub(k.lastGC) < k.idleTTL {
		return
	}
	k.lastGC = now
	for key, v := range k.visitors {
		if now.Sub(v.lastSeen) > k.idleTTL {
			delete(k.visitors, key)
		}
	}
}
