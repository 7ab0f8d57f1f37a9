package storage

import (
	"path/filepath"
	"sync"
	"time"

	"genshin_assistant/internal/logbus"
)

const activityFile = "last_use_times.json"

// UsageTracker records when each user last made an authenticated call of
// their own. Scheduled sweeps never count as use: the whole point of the
// expiry sweep is to drop users who only exist as automation entries.
//
// Unlike the other tables this one is not persisted per mutation; it
// changes on every command, so it is flushed periodically by the scheduler
// and once on shutdown.
type UsageTracker struct {
	mu    sync.Mutex
	path  string
	bus   *logbus.Bus
	table map[string]time.Time
}

func OpenUsageTracker(dataDir string, bus *logbus.Bus) *UsageTracker {
	path := filepath.Join(dataDir, activityFile)
	return &UsageTracker{
		path:  path,
		bus:   bus,
		table: loadTable[time.Time](path),
	}
}

func (t *UsageTracker) Touch(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.table[userID] = time.Now()
}

// Expired reports whether the user's last activity is strictly older than
// window. A user with no entry yet is never expired; the check backfills
// the entry so the clock starts now.
func (t *UsageTracker) Expired(userID string, now time.Time, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.table[userID]
	if !ok {
		t.table[userID] = now
		return false
	}
	return now.Sub(last) > window
}

func (t *UsageTracker) Remove(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.table, userID)
}

func (t *UsageTracker) Persist() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := saveTable(t.path, t.table); err != nil {
		t.bus.Log("error", "persist last-use times failed", map[string]any{"error": err.Error()})
	}
}
