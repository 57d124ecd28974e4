package recruit

import (
	"sync"
	"time"
)

// Cooldown is the per-actor submission rate limiter.
//
// TryAcquire is read-then-stamp in a single critical section: two
// submissions racing during network latency can never both pass the gate,
// because the winner's stamp is written before either performs any I/O.
// State is in-memory only and lost on restart.
type Cooldown struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewCooldown() *Cooldown {
	return &Cooldown{last: map[string]time.Time{}}
}

// TryAcquire reports whether actorID may submit at now, and if not, how long
// remains of the window. On success the actor's timestamp is advanced
// immediately (timestamps are monotonically non-decreasing per actor).
func (c *Cooldown) TryAcquire(actorID string, now time.Time, window time.Duration) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.last[actorID]; ok {
		elapsed := now.Sub(last)
		if elapsed < window {
			return false, window - elapsed
		}
	}
	if now.After(c.last[actorID]) {
		c.last[actorID] = now
	}
	return true, 0
}
