// Package ratelimit meters each client by the ledger work its requests
// cause. A request is charged a cost, usually the number of month reads it
// triggers, against a per-minute budget.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// CostFunc prices a request in budget units. Results below 1 count as 1.
type CostFunc func(*http.Request) int

// Config holds the budget and housekeeping intervals.
type Config struct {
	UnitsPerMinute int
	SweepInterval  time.Duration
	IdleAfter      time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		UnitsPerMinute: 120,
		SweepInterval:  5 * time.Minute,
		IdleAfter:      10 * time.Minute,
	}
}

// Limiter keeps one fixed one-minute window per client.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	quit    chan struct{}
	stopped sync.Once

	rejected atomic.Int64
	charged  atomic.Int64

	budget    int
	sweep     time.Duration
	idleAfter time.Duration
	now       func() time.Time
}

type window struct {
	start time.Time
	seen  time.Time
	used  int
}

// NewLimiter starts a limiter and its sweep loop; call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.UnitsPerMinute <= 0 {
		cfg.UnitsPerMinute = def.UnitsPerMinute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = def.IdleAfter
	}

	l := &Limiter{
		windows:   make(map[string]*window),
		quit:      make(chan struct{}),
		budget:    cfg.UnitsPerMinute,
		sweep:     cfg.SweepInterval,
		idleAfter: cfg.IdleAfter,
		now:       time.Now,
	}
	go l.sweepLoop()
	return l
}

// Take charges cost units to client. When the window cannot afford it, Take
// returns false and how long until the window resets. A cost larger than the
// whole budget is capped so an idle client can always make one request.
func (l *Limiter) Take(client string, cost int) (bool, time.Duration) {
	cost = max(cost, 1)
	cost = min(cost, l.budget)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[client]
	if !ok || now.Sub(w.start) >= time.Minute {
		w = &window{start: now}
		l.windows[client] = w
	}
	w.seen = now

	if w.used+cost > l.budget {
		l.rejected.Add(1)
		return false, w.start.Add(time.Minute).Sub(now)
	}
	w.used += cost
	l.charged.Add(int64(cost))
	return true, 0
}

// Remaining returns the units client may still spend in its current window.
func (l *Limiter) Remaining(client string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[client]
	if !ok || l.now().Sub(w.start) >= time.Minute {
		return l.budget
	}
	return l.budget - w.used
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.quit:
			return
		}
	}
}

func (l *Limiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idleAfter)
	for client, w := range l.windows {
		if w.seen.Before(cutoff) {
			delete(l.windows, client)
		}
	}
}

// Stop ends the sweep loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopped.Do(func() { close(l.quit) })
}

// Stats is a point-in-time view of the limiter.
type Stats struct {
	Rejected     int64
	UnitsCharged int64
	Clients      int
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	clients := len(l.windows)
	l.mu.Unlock()
	return Stats{
		Rejected:     l.rejected.Load(),
		UnitsCharged: l.charged.Load(),
		Clients:      clients,
	}
}

// Middleware charges every request cost(r) units, or 1 when cost is nil.
// Rejected requests get a Retry-After header and are passed to onLimit, or
// answered with a plain 429 when onLimit is nil.
func (l *Limiter) Middleware(clientOf func(*http.Request) string, cost CostFunc, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			units := 1
			if cost != nil {
				units = cost(r)
			}
			ok, wait := l.Take(clientOf(r), units)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
