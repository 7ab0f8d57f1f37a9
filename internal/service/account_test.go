package service

import (
	"context"
	"errors"
	"testing"

	"genshin_assistant/internal/model"
	"genshin_assistant/internal/upstream"
)

const validCookie = "ltoken=AbCdEf0123456789abcdef; ltuid=123456; cookie_token=ZyXwVu9876543210zyxwvu; account_id=123456"

func TestSubmitCookieMalformed(t *testing.T) {
	f := newFixture(t)
	_, err := f.accounts.SubmitCookie(context.Background(), "u1", "ltoken=short")
	var ue *UserError
	if !errors.As(err, &ue) || ue.Reason != ReasonBadInput {
		t.Fatalf("want ReasonBadInput, got %v", err)
	}
	if _, ok := f.creds.Get("u1"); ok {
		t.Error("malformed cookie was persisted")
	}
}

func TestSubmitCookieRejectedUpstream(t *testing.T) {
	f := newFixture(t)
	f.session.accountsErr = upstream.Classify(-100, "login invalid")

	_, err := f.accounts.SubmitCookie(context.Background(), "u1", validCookie)
	if !AuthExpired(err) {
		t.Fatalf("want auth-expired error, got %v", err)
	}
	if _, ok := f.creds.Get("u1"); ok {
		t.Error("rejected cookie was persisted")
	}
}

func TestSubmitCookieZeroAccounts(t *testing.T) {
	f := newFixture(t)
	f.session.accounts = nil

	_, err := f.accounts.SubmitCookie(context.Background(), "u1", validCookie)
	var ue *UserError
	if !errors.As(err, &ue) || ue.Reason != ReasonNotFound {
		t.Fatalf("want ReasonNotFound, got %v", err)
	}
	if _, ok := f.creds.Get("u1"); ok {
		t.Error("cookie with no linked accounts was persisted")
	}
}

func TestSubmitCookieSingleAccountAutoBinds(t *testing.T) {
	f := newFixture(t)
	f.session.accounts = []model.GameAccount{{UID: "812345678", Nickname: "Traveler"}}

	result, err := f.accounts.SubmitCookie(context.Background(), "u1", validCookie)
	if err != nil {
		t.Fatalf("SubmitCookie: %v", err)
	}
	if result.BoundUID != "812345678" {
		t.Errorf("BoundUID = %q, want auto-bound uid", result.BoundUID)
	}
	acc, ok := f.creds.Get("u1")
	if !ok || acc.UID != "812345678" {
		t.Errorf("stored account = %+v", acc)
	}
}

func TestSubmitCookieMultipleAccounts(t *testing.T) {
	f := newFixture(t)
	f.session.accounts = []model.GameAccount{
		{UID: "812345678"},
		{UID: "912345678"},
	}

	result, err := f.accounts.SubmitCookie(context.Background(), "u1", validCookie)
	if err != nil {
		t.Fatalf("SubmitCookie: %v", err)
	}
	if result.BoundUID != "" {
		t.Errorf("BoundUID = %q, want empty pending selection", result.BoundUID)
	}
	if len(result.Accounts) != 2 {
		t.Errorf("Accounts = %d entries, want 2", len(result.Accounts))
	}
	acc, ok := f.creds.Get("u1")
	if !ok {
		t.Fatal("cookie not stored")
	}
	if acc.UID != "" {
		t.Errorf("uid bound without selection: %q", acc.UID)
	}
}

func TestSetUIDUnverified(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "")

	if err := f.accounts.SetUID(context.Background(), "u1", "812345678", false); err != nil {
		t.Fatalf("SetUID: %v", err)
	}
	acc, _ := f.creds.Get("u1")
	if acc.UID != "812345678" {
		t.Errorf("uid = %q", acc.UID)
	}
}

func TestSetUIDVerifiedRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "")

	cases := []string{"12345", "81234567x", "412345678"}
	for _, uid := range cases {
		err := f.accounts.SetUID(context.Background(), "u1", uid, true)
		var ue *UserError
		if !errors.As(err, &ue) || ue.Reason != ReasonBadInput {
			t.Errorf("SetUID(%q): want ReasonBadInput, got %v", uid, err)
		}
	}
}

func TestSetUIDVerifiedMembership(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "")
	f.session.accounts = []model.GameAccount{{UID: "812345678"}}

	if err := f.accounts.SetUID(context.Background(), "u1", "812345678", true); err != nil {
		t.Fatalf("SetUID: %v", err)
	}

	err := f.accounts.SetUID(context.Background(), "u1", "912345678", true)
	var ue *UserError
	if !errors.As(err, &ue) || ue.Reason != ReasonNotFound {
		t.Errorf("foreign uid: want ReasonNotFound, got %v", err)
	}
}

func TestSetUIDVerifiedUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "")
	f.session.accountsErr = errors.New("network down")

	err := f.accounts.SetUID(context.Background(), "u1", "812345678", true)
	var ue *UserError
	if !errors.As(err, &ue) || ue.Reason != ReasonUpstream {
		t.Errorf("want ReasonUpstream, got %v", err)
	}
}

func TestGate(t *testing.T) {
	f := newFixture(t)

	if _, err := f.accounts.Gate("ghost", false, false); !NotRegistered(err) {
		t.Errorf("unknown user: want not-registered, got %v", err)
	}

	f.register("u1", "")
	if _, err := f.accounts.Gate("u1", false, false); err != nil {
		t.Errorf("cookie without uid, requireUID=false: %v", err)
	}
	if _, err := f.accounts.Gate("u1", true, false); !NotRegistered(err) {
		t.Errorf("cookie without uid, requireUID=true: want not-registered, got %v", err)
	}

	f.creds.BindUID("u1", "812345678")
	acc, err := f.accounts.Gate("u1", true, false)
	if err != nil {
		t.Fatalf("Gate: %v", err)
	}
	if acc.UID != "812345678" {
		t.Errorf("gated account = %+v", acc)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")

	if !f.accounts.Remove("u1") {
		t.Error("Remove returned false for existing user")
	}
	if f.accounts.Remove("u1") {
		t.Error("Remove returned true for missing user")
	}
}
