package service

import (
	"context"
	"testing"

	"genshin_assistant/internal/logbus"
	"genshin_assistant/internal/model"
	"genshin_assistant/internal/storage"
	"genshin_assistant/internal/upstream"
)

// fakeSession scripts upstream behavior per test. Unset fields mean "call
// succeeds with the zero value".
type fakeSession struct {
	accounts    []model.GameAccount
	accountsErr error

	notes    model.Notes
	notesErr error

	abyss    model.SpiralAbyss
	abyssErr error

	diary    model.Diary
	diaryErr error

	cards    []model.RecordCard
	cardsErr error

	stats    model.PartialStats
	statsErr error

	characters    []model.Character
	charactersErr error

	redeemErr   error
	redeemCalls int

	claim      func(game upstream.Game) (model.DailyReward, error)
	claimCalls int

	communityErr   error
	communityCalls int
}

func (s *fakeSession) ListAccounts(context.Context) ([]model.GameAccount, error) {
	return s.accounts, s.accountsErr
}

func (s *fakeSession) Notes(context.Context, string) (model.Notes, error) {
	return s.notes, s.notesErr
}

func (s *fakeSession) SpiralAbyss(context.Context, string, bool) (model.SpiralAbyss, error) {
	return s.abyss, s.abyssErr
}

func (s *fakeSession) Diary(context.Context, string, int) (model.Diary, error) {
	return s.diary, s.diaryErr
}

func (s *fakeSession) RecordCards(context.Context) ([]model.RecordCard, error) {
	return s.cards, s.cardsErr
}

func (s *fakeSession) PartialStats(context.Context, string) (model.PartialStats, error) {
	return s.stats, s.statsErr
}

func (s *fakeSession) Characters(context.Context, string) ([]model.Character, error) {
	return s.characters, s.charactersErr
}

func (s *fakeSession) RedeemCode(context.Context, string, string) error {
	s.redeemCalls++
	return s.redeemErr
}

func (s *fakeSession) ClaimDailyReward(_ context.Context, game upstream.Game) (model.DailyReward, error) {
	s.claimCalls++
	if s.claim == nil {
		return model.DailyReward{}, nil
	}
	return s.claim(game)
}

func (s *fakeSession) CheckInCommunity(context.Context) error {
	s.communityCalls++
	return s.communityErr
}

type fakeFactory struct {
	session *fakeSession
}

func (f *fakeFactory) Session(model.UserAccount) upstream.Session { return f.session }

type fixture struct {
	accounts *AccountService
	queries  *QueryService
	actions  *ActionService
	creds    *storage.CredentialStore
	tracker  *storage.UsageTracker
	session  *fakeSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	bus := logbus.New(16)
	session := &fakeSession{}
	factory := &fakeFactory{session: session}

	creds := storage.OpenCredentialStore(dir, bus)
	tracker := storage.OpenUsageTracker(dir, bus)
	accounts := NewAccountService(creds, tracker, factory, bus)
	queries := NewQueryService(accounts, factory, bus, 140)
	actions := NewActionService(accounts, factory, nil, bus)
	actions.retryWait = 0

	return &fixture{
		accounts: accounts,
		queries:  queries,
		actions:  actions,
		creds:    creds,
		tracker:  tracker,
		session:  session,
	}
}

// register short-circuits the submission flow for tests that only need a
// stored, bound user.
func (f *fixture) register(userID, uid string) {
	f.creds.SetCookie(userID, "cookie")
	if uid != "" {
		f.creds.BindUID(userID, uid)
	}
}
