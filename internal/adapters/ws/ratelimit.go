package ws

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClientLimiter is a per-client token bucket guarding the request boundary.
// Idle entries are evicted periodically so memory stays bounded. Throttling
// lives here on purpose: the auction core never sees it.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	rps     rate.Limit
	burst   int
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewClientLimiter(perSecond float64, burst int) *ClientLimiter {
	l := &ClientLimiter{
		clients: make(map[string]*limiterEntry),
		rps:     rate.Limit(perSecond),
		burst:   burst,
		ttl:     10 * time.Minute,
		done:    make(chan struct{}),
	}
	go l.evictLoop()
	return l
}

// Allow reports whether the client may make another request now
func (l *ClientLimiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.clients[clientID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[clientID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (l *ClientLimiter) evictLoop() {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-l.ttl)
			l.mu.Lock()
			for id, entry := range l.clients {
				if entry.lastSeen.Before(cutoff) {
					delete(l.clients, id)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

// Stop terminates the eviction loop
func (l *ClientLimiter) Stop() {
	l.once.Do(func() { close(l.done) })
}
