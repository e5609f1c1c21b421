// Package ratelimit is a fixed-window per-IP, per-operation limiter. Windows
// live in a TTL cache so idle buckets expire without a reaper of their own.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type Operation string

const (
	OpAuth       Operation = "auth"
	OpTokenIssue Operation = "token_issue"
	OpBallot     Operation = "ballot"
	OpAdminReset Operation = "admin_reset"
)

type window struct {
	mu    sync.Mutex
	count int
}

type Limiter struct {
	limits  map[Operation]int
	window  time.Duration
	buckets *ttlcache.Cache[string, *window]
}

type Limits struct {
	Auth       int
	TokenIssue int
	Ballot     int
	AdminReset int
	Window     time.Duration
}

func New(limits Limits) *Limiter {
	if limits.Window <= 0 {
		limits.Window = time.Minute
	}
	buckets := ttlcache.New[string, *window]()
	go buckets.Start()
	return &Limiter{
		limits: map[Operation]int{
			OpAuth:       limits.Auth,
			OpTokenIssue: limits.TokenIssue,
			OpBallot:     limits.Ballot,
			OpAdminReset: limits.AdminReset,
		},
		window:  limits.Window,
		buckets: buckets,
	}
}

// Allow counts one request for (op, ip) in the current window. When the
// window is exhausted it returns false and the time the caller should wait.
func (l *Limiter) Allow(op Operation, ip string) (retryAfter time.Duration, ok bool) {
	limit := l.limits[op]
	if limit <= 0 {
		return 0, true
	}

	key := string(op) + "|" + ip
	item, _ := l.buckets.GetOrSet(key, &window{}, ttlcache.WithTTL[string, *window](l.window))
	bucket := item.Value()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	if bucket.count >= limit {
		retryAfter = time.Until(item.ExpiresAt())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return retryAfter, false
	}
	bucket.count++
	return 0, true
}

// Stop releases the cache janitor goroutine.
func (l *Limiter) Stop() {
	l.buckets.Stop()
}
