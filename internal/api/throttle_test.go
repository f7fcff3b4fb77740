package api

import (
	"testing"
	"time"
)

func TestTitleThrottle_Window(t *testing.T) {
	th := newTitleThrottle(2 * time.Second)
	current := time.Unix(1_700_000_000, 0)
	th.now = func() time.Time { return current }

	if !th.allow("note-1") {
		t.Fatal("first request should be allowed")
	}
	if th.allow("note-1") {
		t.Fatal("immediate second request should be throttled")
	}

	current = current.Add(1 * time.Second)
	if th.allow("note-1") {
		t.Fatal("request inside the window should be throttled")
	}

	current = current.Add(1 * time.Second)
	if !th.allow("note-1") {
		t.Fatal("request after the window should be allowed")
	}
}

func TestTitleThrottle_PerNote(t *testing.T) {
	th := newTitleThrottle(2 * time.Second)
	current := time.Unix(1_700_000_000, 0)
	th.now = func() time.Time { return current }

	if !th.allow("note-1") {
		t.Fatal("note-1 should be allowed")
	}
	if !th.allow("note-2") {
		t.Fatal("note-2 should not be affected by note-1's window")
	}
}

func TestTitleThrottle_StaleEviction(t *testing.T) {
	th := newTitleThrottle(2 * time.Second)
	current := time.Unix(1_700_000_000, 0)
	th.now = func() time.Time { return current }

	th.allow("note-1")

	// Sweep runs once the stale threshold has passed.
	current = current.Add(titleThrottleStale + time.Minute)
	th.allow("note-2")

	th.mu.Lock()
	_, still := th.lastRun["note-1"]
	th.mu.Unlock()
	if still {
		t.Error("stale entry should have been evicted")
	}
}
