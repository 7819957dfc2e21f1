package web

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// rateLimiter is a fixed-window token bucket per client IP.
type rateLimiter struct {
	clock  clockwork.Clock
	rate   int
	window time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(clock clockwork.Clock, rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clock:    clock,
		rate:     rate,
		window:   window,
		visitors: make(map[string]*visitor),
	}
}

// run prunes idle visitors until ctx is cancelled.
func (rl *rateLimiter) run(ctx context.Context) {
	ticker := rl.clock.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			rl.prune()
		}
	}
}

func (rl *rateLimiter) prune() {
	now := rl.clock.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, ip)
		}
	}
}

// allow consumes a token for ip and reports whether the request may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	now := rl.clock.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) visitorCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// middleware rejects requests over the limit. RemoteAddr has already been
// resolved by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r.RemoteAddr)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			respondError(w, r, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
