package chat

import (
	"sync"
	"time"
)

// gate enforces a minimum interval between actions per key. State is
// per-instance: a participant reconnecting to another instance gets a fresh
// window, which is acceptable for abuse damping.
type gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

func newGate(interval time.Duration) *gate {
	return &gate{interval: interval, last: make(map[string]time.Time)}
}

func (g *gate) Allow(key string) bool {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.last[key]; ok && now.Sub(prev) < g.interval {
		return false
	}
	g.last[key] = now
	return true
}
