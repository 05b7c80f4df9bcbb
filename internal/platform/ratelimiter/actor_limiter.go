// Package ratelimiter bounds how fast a single actor may issue ledger
// submissions, protecting public endpoints from accidental bursts.
package ratelimiter

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ActorLimiter applies a token bucket per actor and evicts buckets that have
// been idle longer than idleTTL.
type ActorLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	byActor map[string]*bucket
	hits    uint64
	idleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a per-actor limiter; returns nil if args are invalid. A nil
// limiter allows everything.
func New(perSecond float64, burst int, idleTTL time.Duration) *ActorLimiter {
	if perSecond <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &ActorLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		byActor: make(map[string]*bucket),
		idleTTL: idleTTL,
	}
}

// Allow reports whether the actor may issue one submission at now.
func (l *ActorLimiter) Allow(actor string, now time.Time) bool {
	if l == nil {
		return true
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byActor[actor]
	if !ok {
		b = &bucket{
			limiter:  rate.NewLimiter(l.limit, l.burst),
			lastSeen: now,
		}
		l.byActor[actor] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%256 == 0 {
		l.evictIdle(now)
	}

	return allowed
}

// TrackedActors is exposed for diagnostics.
func (l *ActorLimiter) TrackedActors() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byActor)
}

func (l *ActorLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for actor, b := range l.byActor {
		if b.lastSeen.Before(cutoff) {
			delete(l.byActor, actor)
		}
	}
}
