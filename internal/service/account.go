package service

import (
	"context"
	"strconv"

	"genshin_assistant/internal/logbus"
	"genshin_assistant/internal/model"
	"genshin_assistant/internal/storage"
	"genshin_assistant/internal/upstream"
)

// AccountService owns the credential lifecycle: submission, uid binding,
// the validity gate every operation runs through, and removal.
type AccountService struct {
	creds   *storage.CredentialStore
	tracker *storage.UsageTracker
	factory upstream.Factory
	bus     *logbus.Bus
}

func NewAccountService(creds *storage.CredentialStore, tracker *storage.UsageTracker, factory upstream.Factory, bus *logbus.Bus) *AccountService {
	return &AccountService{creds: creds, tracker: tracker, factory: factory, bus: bus}
}

// SubmitResult is what cookie submission hands back to the renderer:
// either an auto-bound uid, or the linked accounts to disambiguate among.
type SubmitResult struct {
	BoundUID string              `json:"boundUid,omitempty"`
	Accounts []model.GameAccount `json:"accounts,omitempty"`
}

// SubmitCookie validates and stores a raw cookie. Nothing is persisted
// until the cookie both parses and proves it is attached to at least one
// game account.
func (s *AccountService) SubmitCookie(ctx context.Context, userID, raw string) (SubmitResult, error) {
	cookie, err := upstream.NormalizeCookie(raw)
	if err != nil {
		s.bus.UserLog("info", userID, "cookie rejected, malformed", nil)
		return SubmitResult{}, userErr(ReasonBadInput, msgBadCookie)
	}

	// Throwaway session: the cookie is not stored yet, so the probe runs
	// on a bare account snapshot.
	probe := s.factory.Session(model.UserAccount{UserID: userID, Cookie: cookie})
	accounts, err := probe.ListAccounts(ctx)
	if err != nil {
		s.bus.UserLog("info", userID, "cookie rejected by upstream", map[string]any{"error": err.Error()})
		return SubmitResult{}, fromUpstream(err)
	}
	if len(accounts) == 0 {
		s.bus.UserLog("info", userID, "cookie rejected, no linked accounts", nil)
		return SubmitResult{}, userErr(ReasonNotFound, msgNoAccounts)
	}

	s.creds.SetCookie(userID, cookie)
	s.tracker.Touch(userID)

	if len(accounts) == 1 && len(accounts[0].UID) == 9 {
		s.creds.BindUID(userID, accounts[0].UID)
		s.bus.UserLog("info", userID, "cookie saved, uid auto-bound", map[string]any{"uid": accounts[0].UID})
		return SubmitResult{BoundUID: accounts[0].UID}, nil
	}

	s.bus.UserLog("info", userID, "cookie saved, uid pending selection", map[string]any{"accounts": len(accounts)})
	return SubmitResult{Accounts: accounts}, nil
}

// SetUID binds a game uid. With verify off (the auto-bind path) it stores
// unconditionally; with verify on it re-checks the uid against the
// account's freshly listed game roles.
func (s *AccountService) SetUID(ctx context.Context, userID, uid string, verify bool) error {
	if !verify {
		s.creds.BindUID(userID, uid)
		return nil
	}

	acc, err := s.Gate(userID, false, true)
	if err != nil {
		return err
	}
	if len(uid) != 9 || !allDigits(uid) {
		return userErr(ReasonBadInput, msgBadUIDLen)
	}
	if !upstream.ValidUIDPrefix(uid) {
		return userErr(ReasonBadInput, msgBadUIDPrefix)
	}

	accounts, err := s.factory.Session(acc).ListAccounts(ctx)
	if err != nil {
		s.bus.UserLog("warn", userID, "uid verification failed upstream", map[string]any{"error": err.Error()})
		return userErr(ReasonUpstream, msgAccountCheck)
	}
	for _, a := range accounts {
		if a.UID == uid {
			s.creds.BindUID(userID, uid)
			s.bus.UserLog("info", userID, "uid bound", map[string]any{"uid": uid})
			return nil
		}
	}
	return userErr(ReasonNotFound, msgUIDNotFound)
}

// Gate is the single validity check in front of every operation. touch
// marks the call as genuine user activity; scheduled work passes false so
// automation alone never keeps a user alive past the retention window.
func (s *AccountService) Gate(userID string, requireUID, touch bool) (model.UserAccount, error) {
	acc, ok := s.creds.Get(userID)
	if !ok {
		return model.UserAccount{}, userErr(ReasonNotRegistered, msgNotRegistered)
	}
	if requireUID && !acc.HasUID() {
		return model.UserAccount{}, userErr(ReasonNotRegistered, msgNoUID)
	}
	if touch {
		s.tracker.Touch(userID)
	}
	return acc, nil
}

// Remove deletes everything stored for the user.
func (s *AccountService) Remove(userID string) bool {
	removed := s.creds.Remove(userID)
	s.tracker.Remove(userID)
	if removed {
		s.bus.UserLog("info", userID, "user data removed", nil)
	}
	return removed
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
