package service

import (
	"context"
	"time"

	"genshin_assistant/internal/logbus"
	"genshin_assistant/internal/model"
	"genshin_assistant/internal/upstream"
)

// QueryService is the read side: every operation gates, calls upstream on
// a fresh session, and maps the outcome to a structured payload or a
// UserError. Nothing upstream-shaped leaks past this point.
type QueryService struct {
	accounts       *AccountService
	factory        upstream.Factory
	bus            *logbus.Bus
	resinThreshold int

	now func() time.Time
}

func NewQueryService(accounts *AccountService, factory upstream.Factory, bus *logbus.Bus, resinThreshold int) *QueryService {
	if resinThreshold <= 0 {
		resinThreshold = 140
	}
	return &QueryService{
		accounts:       accounts,
		factory:        factory,
		bus:            bus,
		resinThreshold: resinThreshold,
		now:            time.Now,
	}
}

// Notes returns the real-time notes. On the scheduled path the activity
// timestamp is left alone and a resin level below the alert threshold
// returns (nil, nil): the sentinel telling the scheduler to send nothing.
func (s *QueryService) Notes(ctx context.Context, userID string, scheduled bool) (*model.Notes, error) {
	acc, err := s.accounts.Gate(userID, true, !scheduled)
	if err != nil {
		return nil, err
	}
	notes, err := s.factory.Session(acc).Notes(ctx, acc.UID)
	if err != nil {
		s.log(userID, "notes", err)
		return nil, fromUpstream(err)
	}
	if scheduled && notes.CurrentResin < s.resinThreshold {
		return nil, nil
	}
	return &notes, nil
}

func (s *QueryService) Abyss(ctx context.Context, userID string, previous bool) (*model.SpiralAbyss, error) {
	acc, err := s.accounts.Gate(userID, true, true)
	if err != nil {
		return nil, err
	}
	abyss, err := s.factory.Session(acc).SpiralAbyss(ctx, acc.UID, previous)
	if err != nil {
		s.log(userID, "abyss", err)
		return nil, fromUpstream(err)
	}
	return &abyss, nil
}

// Diary fetches one month of income. monthOffset is relative to the
// current calendar month (0 = this month, -1 = last month) and wraps
// around year boundaries.
func (s *QueryService) Diary(ctx context.Context, userID string, monthOffset int) (*model.Diary, error) {
	acc, err := s.accounts.Gate(userID, true, true)
	if err != nil {
		return nil, err
	}
	month := wrapMonth(int(s.now().Month()) + monthOffset)
	diary, err := s.factory.Session(acc).Diary(ctx, acc.UID, month)
	if err != nil {
		s.log(userID, "diary", err)
		return nil, fromUpstream(err)
	}
	return &diary, nil
}

// RecordCardResult pairs the matched record card with partial stats, the
// way the profile view consumes them.
type RecordCardResult struct {
	Card  model.RecordCard   `json:"card"`
	Stats model.PartialStats `json:"stats"`
}

func (s *QueryService) RecordCard(ctx context.Context, userID string) (*RecordCardResult, error) {
	acc, err := s.accounts.Gate(userID, true, true)
	if err != nil {
		return nil, err
	}
	session := s.factory.Session(acc)
	cards, err := session.RecordCards(ctx)
	if err != nil {
		s.log(userID, "record card", err)
		return nil, fromUpstream(err)
	}
	stats, err := session.PartialStats(ctx, acc.UID)
	if err != nil {
		s.log(userID, "record card stats", err)
		return nil, fromUpstream(err)
	}
	for _, card := range cards {
		if card.UID == acc.UID {
			return &RecordCardResult{Card: card, Stats: stats}, nil
		}
	}
	return nil, userErr(ReasonNotFound, msgCardNotFound)
}

func (s *QueryService) Characters(ctx context.Context, userID string) ([]model.Character, error) {
	acc, err := s.accounts.Gate(userID, true, true)
	if err != nil {
		return nil, err
	}
	chars, err := s.factory.Session(acc).Characters(ctx, acc.UID)
	if err != nil {
		s.log(userID, "characters", err)
		return nil, fromUpstream(err)
	}
	return chars, nil
}

func (s *QueryService) log(userID, op string, err error) {
	s.bus.UserLog("info", userID, op+" query failed", map[string]any{
		"kind":  upstream.KindOf(err).String(),
		"error": err.Error(),
	})
}

func wrapMonth(m int) int {
	for m < 1 {
		m += 12
	}
	for m > 12 {
		m -= 12
	}
	return m
}
