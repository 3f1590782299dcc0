package server

import (
	"sync"
	"time"
)

// tokenBucket throttles inbound frames per connection. Tokens refill
// continuously at burst-per-interval; each accepted frame spends one.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	perSec   float64
	last     time.Time
}

func newTokenBucket(burst int, interval time.Duration) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &tokenBucket{
		tokens:   float64(burst),
		capacity: float64(burst),
		perSec:   float64(burst) / interval.Seconds(),
		last:     time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * b.perSec
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
