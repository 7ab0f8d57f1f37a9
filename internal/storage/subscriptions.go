package storage

import (
	"path/filepath"
	"sort"
	"sync"

	"genshin_assistant/internal/logbus"
	"genshin_assistant/internal/model"
)

var subscriptionFiles = map[model.SubscriptionKind]string{
	model.KindDailyCheckIn: "schedule_daily_checkin.json",
	model.KindResinAlert:   "schedule_resin_alert.json",
}

// SubscriptionStore owns one table per automation kind, each persisted to
// its own snapshot file. Enabling a subscription twice is an upsert; the
// newest channel and flags win.
type SubscriptionStore struct {
	mu     sync.Mutex
	bus    *logbus.Bus
	paths  map[model.SubscriptionKind]string
	tables map[model.SubscriptionKind]map[string]model.Subscription
}

func OpenSubscriptionStore(dataDir string, bus *logbus.Bus) *SubscriptionStore {
	s := &SubscriptionStore{
		bus:    bus,
		paths:  make(map[model.SubscriptionKind]string, len(subscriptionFiles)),
		tables: make(map[model.SubscriptionKind]map[string]model.Subscription, len(subscriptionFiles)),
	}
	for kind, file := range subscriptionFiles {
		path := filepath.Join(dataDir, file)
		s.paths[kind] = path
		s.tables[kind] = loadTable[model.Subscription](path)
	}
	return s
}

func (s *SubscriptionStore) Upsert(kind model.SubscriptionKind, sub model.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.tables[kind]
	if !ok {
		return
	}
	table[sub.UserID] = sub
	s.persistLocked(kind)
}

func (s *SubscriptionStore) Remove(kind model.SubscriptionKind, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.tables[kind]
	if !ok {
		return false
	}
	if _, ok := table[userID]; !ok {
		return false
	}
	delete(table, userID)
	s.persistLocked(kind)
	return true
}

func (s *SubscriptionStore) Get(kind model.SubscriptionKind, userID string) (model.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.tables[kind][userID]
	return sub, ok
}

// All returns a copy of one table, sorted by user id. Sweeps iterate this
// copy so that pruning entries mid-sweep cannot disturb the iteration.
func (s *SubscriptionStore) All(kind model.SubscriptionKind) []model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.tables[kind]
	out := make([]model.Subscription, 0, len(table))
	for _, sub := range table {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *SubscriptionStore) persistLocked(kind model.SubscriptionKind) {
	if err := saveTable(s.paths[kind], s.tables[kind]); err != nil {
		s.bus.Log("error", "persist subscriptions failed", map[string]any{
			"kind":  string(kind),
			"error": err.Error(),
		})
	}
}
