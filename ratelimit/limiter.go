// Package ratelimit is an in-process, per-caller token bucket used as
// admission control in front of expensive or sensitive HTTP endpoints.
//
// Buckets refill lazily at check time in whole epoch seconds; there is no
// background timer. Each bucket has its own mutex, so callers never block
// each other. Buckets live in sharded, size-bounded LRUs and buckets idle
// for IdleEviction are dropped opportunistically. A bucket idle for at
// least one refill window is full again, so dropping it is not observable.
//
// Quotas are per process: N replicas admit up to N times the configured
// rate.
package ratelimit

import (
	"errors"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
)

// sweepBatch bounds the idle buckets removed per call so a sweep stays O(1).
const sweepBatch = 8

// Config holds bucket parameters shared by all callers.
type Config struct {
	Capacity     int
	RefillWindow time.Duration
	IdleEviction time.Duration
	MaxBuckets   int
	Shards       int
}

// DefaultConfig returns 60 requests per 60 seconds.
func DefaultConfig() Config {
	return Config{
		Capacity:     60,
		RefillWindow: 60 * time.Second,
		IdleEviction: 10 * 60 * time.Second,
		MaxBuckets:   100_000,
		Shards:       16,
	}
}

// Validate checks cfg for internal consistency.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.New("ratelimit capacity must be > 0")
	}
	if c.RefillWindow < time.Second {
		return errors.New("ratelimit refill window must be >= 1s")
	}
	if c.IdleEviction < c.RefillWindow {
		return errors.New("ratelimit idle eviction must be >= refill window")
	}
	if c.Shards <= 0 {
		return errors.New("ratelimit shards must be > 0")
	}
	if c.MaxBuckets < c.Shards {
		return errors.New("ratelimit max buckets must be >= shards")
	}
	return nil
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill int64
}

type shard struct {
	mu  sync.Mutex
	lru *simplelru.LRU
}

// Limiter holds one token bucket per caller key.
type Limiter struct {
	capacity float64
	perSec   float64
	idleSec  int64
	shards   []*shard
	now      func() time.Time
}

// New returns a Limiter for cfg.
func New(cfg Config) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	perShard := cfg.MaxBuckets / cfg.Shards
	shards := make([]*shard, cfg.Shards)
	for i := range shards {
		lru, err := simplelru.NewLRU(perShard, nil)
		if err != nil {
			return nil, err
		}
		shards[i] = &shard{lru: lru}
	}

	return &Limiter{
		capacity: float64(cfg.Capacity),
		perSec:   float64(cfg.Capacity) / cfg.RefillWindow.Seconds(),
		idleSec:  int64(cfg.IdleEviction / time.Second),
		shards:   shards,
		now:      time.Now,
	}, nil
}

// WithClock replaces the wall clock.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Allow consumes one token from key's bucket and reports whether the
// request is admitted.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Take(key)
	return ok
}

// Take is Allow plus, on denial, the wait until one token is available.
func (l *Limiter) Take(key string) (bool, time.Duration) {
	now := l.now().Unix()
	b := l.bucketFor(key, now)
	defer b.mu.Unlock()

	if elapsed := now - b.lastRefill; elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+float64(elapsed)*l.perSec)
		b.lastRefill = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	wait := math.Ceil((1 - b.tokens) / l.perSec)
	return false, time.Duration(wait) * time.Second
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += s.lru.Len()
		s.mu.Unlock()
	}
	return n
}

// bucketFor returns key's bucket with b.mu held. The bucket lock is taken
// before the shard lock is released, so a concurrent sweep waits for the
// caller's refill and never drops a bucket that is in use.
func (l *Limiter) bucketFor(key string, now int64) *bucket {
	s := l.shards[shardIndex(key, len(l.shards))]

	s.mu.Lock()
	defer s.mu.Unlock()

	l.sweep(s, now)
	var b *bucket
	if v, ok := s.lru.Get(key); ok {
		b = v.(*bucket)
	} else {
		b = &bucket{tokens: l.capacity, lastRefill: now}
		s.lru.Add(key, b)
	}
	b.mu.Lock()
	return b
}

// sweep drops idle buckets from the cold end of the shard. Caller holds s.mu.
func (l *Limiter) sweep(s *shard, now int64) {
	for i := 0; i < sweepBatch; i++ {
		_, v, ok := s.lru.GetOldest()
		if !ok {
			return
		}
		b := v.(*bucket)
		b.mu.Lock()
		idle := now-b.lastRefill >= l.idleSec
		b.mu.Unlock()
		if !idle {
			return
		}
		s.lru.RemoveOldest()
	}
}

func shardIndex(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
