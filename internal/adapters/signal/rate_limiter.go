package signal

import (
	"sync"
	"time"

	"github.com/groupdesk/realtime/internal/app"
)

// CursorLimiter bounds cursor-move fan-out per connection with a
// sliding window: at most limit events per interval, extras dropped.
type CursorLimiter struct {
	mu       sync.Mutex
	history  map[app.ConnectionID][]time.Time
	limit    int
	interval time.Duration
}

func NewCursorLimiter(limit int, interval time.Duration) *CursorLimiter {
	return &CursorLimiter{
		history:  make(map[app.ConnectionID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *CursorLimiter) Allow(conn app.ConnectionID) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[conn]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[conn] = fresh
		return false
	}

	rl.history[conn] = append(fresh, now)
	return true
}

// Forget drops a connection's window on disconnect.
func (rl *CursorLimiter) Forget(conn app.ConnectionID) {
	rl.mu.Lock()
	delete(rl.history, conn)
	rl.mu.Unlock()
}
