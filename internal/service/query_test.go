package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"genshin_assistant/internal/model"
	"genshin_assistant/internal/upstream"
)

func TestNotesInteractive(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.notes = model.Notes{CurrentResin: 12, MaxResin: 160}

	notes, err := f.queries.Notes(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if notes == nil || notes.CurrentResin != 12 {
		t.Errorf("notes = %+v", notes)
	}
}

func TestNotesScheduledSentinel(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")

	// Below the threshold the scheduled path says nothing at all.
	f.session.notes = model.Notes{CurrentResin: 139, MaxResin: 160}
	notes, err := f.queries.Notes(context.Background(), "u1", true)
	if err != nil || notes != nil {
		t.Errorf("resin 139: got (%v, %v), want (nil, nil)", notes, err)
	}

	// At the threshold the alert fires.
	f.session.notes = model.Notes{CurrentResin: 140, MaxResin: 160}
	notes, err = f.queries.Notes(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("resin 140: %v", err)
	}
	if notes == nil {
		t.Fatal("resin at threshold suppressed")
	}
}

func TestNotesScheduledDoesNotTouchActivity(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.notes = model.Notes{CurrentResin: 150}

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour
	f.tracker.Remove("u1")
	f.tracker.Expired("u1", base, window) // backfill at a known instant

	if _, err := f.queries.Notes(context.Background(), "u1", true); err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if !f.tracker.Expired("u1", base.Add(window+time.Hour), window) {
		t.Error("scheduled notes call refreshed the activity timestamp")
	}

	if _, err := f.queries.Notes(context.Background(), "u1", false); err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if f.tracker.Expired("u1", base.Add(window+time.Hour), window) {
		t.Error("interactive notes call did not refresh the activity timestamp")
	}
}

func TestNotesNotPublic(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.notesErr = upstream.Classify(10102, "not public")

	_, err := f.queries.Notes(context.Background(), "u1", false)
	var ue *UserError
	if !errors.As(err, &ue) || ue.Reason != ReasonNotPublic {
		t.Errorf("want ReasonNotPublic, got %v", err)
	}
}

func TestDiaryMonthWrap(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")

	for _, tc := range []struct {
		now    time.Time
		offset int
	}{
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), -1},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), -2},
		{time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), 0},
	} {
		f.queries.now = func() time.Time { return tc.now }
		if _, err := f.queries.Diary(context.Background(), "u1", tc.offset); err != nil {
			t.Errorf("Diary(offset %d at %v): %v", tc.offset, tc.now, err)
		}
	}

	if got := wrapMonth(0); got != 12 {
		t.Errorf("wrapMonth(0) = %d, want 12", got)
	}
	if got := wrapMonth(-1); got != 11 {
		t.Errorf("wrapMonth(-1) = %d, want 11", got)
	}
	if got := wrapMonth(13); got != 1 {
		t.Errorf("wrapMonth(13) = %d, want 1", got)
	}
}

func TestRecordCardMatching(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.cards = []model.RecordCard{
		{UID: "912345678"},
		{UID: "812345678", Nickname: "Traveler"},
	}
	f.session.stats = model.PartialStats{ActiveDays: 321}

	result, err := f.queries.RecordCard(context.Background(), "u1")
	if err != nil {
		t.Fatalf("RecordCard: %v", err)
	}
	if result.Card.Nickname != "Traveler" || result.Stats.ActiveDays != 321 {
		t.Errorf("result = %+v", result)
	}
}

func TestRecordCardNotFound(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.cards = []model.RecordCard{{UID: "912345678"}}

	_, err := f.queries.RecordCard(context.Background(), "u1")
	var ue *UserError
	if !errors.As(err, &ue) || ue.Reason != ReasonNotFound {
		t.Errorf("want ReasonNotFound, got %v", err)
	}
}
