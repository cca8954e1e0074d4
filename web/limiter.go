// ABOUTME: Per-client token bucket limiter for the chat endpoint
// ABOUTME: Idle clients are pruned once the table grows past a fixed size
package web

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedClients = 1000

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter allows limit requests per window for each client, refilling evenly.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   int
	window  time.Duration
	now     func() time.Time
}

func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		clients: map[string]*clientLimiter{},
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (l *ipLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) > maxTrackedClients {
		l.prune(now)
	}

	c, ok := l.clients[ip]
	if !ok {
		every := l.window / time.Duration(l.limit)
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Every(every), l.limit)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// prune drops clients idle for a full window; their buckets would be full again anyway.
func (l *ipLimiter) prune(now time.Time) {
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > l.window {
			delete(l.clients, ip)
		}
	}
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
