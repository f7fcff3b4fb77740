package api

import (
	"sync"
	"time"
)

const (
	titleThrottleInterval = 2 * time.Second
	titleThrottleStale    = 10 * time.Minute
)

// titleThrottle enforces a minimum interval between title regenerations
// per note, so rapid editor keystrokes cannot fan out into a model call
// per keypress. Entries are swept opportunistically during allow().
type titleThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	lastRun  map[string]time.Time
	swept    time.Time
}

func newTitleThrottle(interval time.Duration) *titleThrottle {
	return &titleThrottle{
		interval: interval,
		now:      time.Now,
		lastRun:  make(map[string]time.Time),
	}
}

// allow reports whether a title regeneration for noteID may run now, and
// records the attempt when it may.
func (t *titleThrottle) allow(noteID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	if now.Sub(t.swept) > titleThrottleStale {
		for id, last := range t.lastRun {
			if now.Sub(last) > titleThrottleStale {
				delete(t.lastRun, id)
			}
		}
		t.swept = now
	}

	if last, ok := t.lastRun[noteID]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastRun[noteID] = now
	return true
}
