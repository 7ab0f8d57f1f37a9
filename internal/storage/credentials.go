package storage

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"genshin_assistant/internal/logbus"
	"genshin_assistant/internal/model"
)

const credentialsFile = "user_accounts.json"

// CredentialStore owns the userId → UserAccount table. Mutation plus
// persistence is one step under the lock; a failed persist is logged and
// the in-memory table stays authoritative.
type CredentialStore struct {
	mu    sync.Mutex
	path  string
	bus   *logbus.Bus
	table map[string]model.UserAccount
}

func OpenCredentialStore(dataDir string, bus *logbus.Bus) *CredentialStore {
	path := filepath.Join(dataDir, credentialsFile)
	return &CredentialStore{
		path:  path,
		bus:   bus,
		table: loadTable[model.UserAccount](path),
	}
}

// Get returns the stored account. A record without a cookie is reported as
// absent: it cannot authenticate anything.
func (s *CredentialStore) Get(userID string) (model.UserAccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.table[userID]
	if !ok || !acc.HasCookie() {
		return model.UserAccount{}, false
	}
	return acc, true
}

// SetCookie replaces the user's record with a fresh one carrying only the
// cookie. Any previously bound uid is dropped: the new cookie may belong
// to a different Hoyolab account.
func (s *CredentialStore) SetCookie(userID, cookie string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := model.UserAccount{UserID: userID, Cookie: cookie, CreatedAt: now, UpdatedAt: now}
	if prev, ok := s.table[userID]; ok && !prev.CreatedAt.IsZero() {
		acc.CreatedAt = prev.CreatedAt
	}
	s.table[userID] = acc
	s.persistLocked()
}

// BindUID attaches a game uid to an existing record. It reports false when
// there is no record to attach to.
func (s *CredentialStore) BindUID(userID, uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.table[userID]
	if !ok || !acc.HasCookie() {
		return false
	}
	acc.UID = uid
	acc.UpdatedAt = time.Now()
	s.table[userID] = acc
	s.persistLocked()
	return true
}

func (s *CredentialStore) Remove(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.table[userID]; !ok {
		return false
	}
	delete(s.table, userID)
	s.persistLocked()
	return true
}

// UserIDs returns every known user id, sorted for deterministic sweeps.
func (s *CredentialStore) UserIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.table))
	for id := range s.table {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *CredentialStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table)
}

func (s *CredentialStore) persistLocked() {
	if err := saveTable(s.path, s.table); err != nil {
		s.bus.Log("error", "persist user accounts failed", map[string]any{"error": err.Error()})
	}
}
