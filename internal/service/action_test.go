package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"genshin_assistant/internal/model"
	"genshin_assistant/internal/upstream"
)

func TestRedeemCodeSuccess(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")

	msg := f.actions.RedeemCode(context.Background(), "u1", "GENSHINGIFT")
	if !strings.Contains(msg, "GENSHINGIFT") || !strings.Contains(msg, "successfully") {
		t.Errorf("msg = %q", msg)
	}
	if f.session.redeemCalls != 1 {
		t.Errorf("redeem called %d times, want 1", f.session.redeemCalls)
	}
}

func TestRedeemCodeNeverRetries(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.redeemErr = upstream.Classify(0, "system busy")

	msg := f.actions.RedeemCode(context.Background(), "u1", "GENSHINGIFT")
	if strings.Contains(msg, "successfully") {
		t.Errorf("failure reported as success: %q", msg)
	}
	if f.session.redeemCalls != 1 {
		t.Errorf("redeem called %d times, want exactly 1", f.session.redeemCalls)
	}
}

func TestRedeemCodeUnregistered(t *testing.T) {
	f := newFixture(t)
	msg := f.actions.RedeemCode(context.Background(), "ghost", "GENSHINGIFT")
	if msg != msgNotRegistered {
		t.Errorf("msg = %q", msg)
	}
	if f.session.redeemCalls != 0 {
		t.Error("redeem reached upstream for an unregistered user")
	}
}

func TestClaimDailyRewardSuccess(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.claim = func(upstream.Game) (model.DailyReward, error) {
		return model.DailyReward{Name: "Primogem", Amount: 60}, nil
	}

	result := f.actions.ClaimDailyReward(context.Background(), "u1", ClaimOptions{})
	if result.AuthExpired {
		t.Error("AuthExpired set on success")
	}
	if !strings.Contains(result.Message, "Primogem") {
		t.Errorf("message = %q", result.Message)
	}
	if f.session.claimCalls != 1 {
		t.Errorf("claim called %d times, want 1", f.session.claimCalls)
	}
	if f.session.communityCalls != 1 {
		t.Errorf("community check-in called %d times, want 1", f.session.communityCalls)
	}
}

func TestClaimDailyRewardAlreadyClaimed(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.claim = func(upstream.Game) (model.DailyReward, error) {
		return model.DailyReward{}, upstream.Classify(-5003, "already signed in")
	}

	result := f.actions.ClaimDailyReward(context.Background(), "u1", ClaimOptions{})
	if result.AuthExpired {
		t.Error("AuthExpired set for idempotent re-claim")
	}
	if !strings.Contains(result.Message, "already claimed") {
		t.Errorf("message = %q", result.Message)
	}
}

func TestClaimDailyRewardZeroRetcodeRetry(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")

	attempts := 0
	f.session.claim = func(upstream.Game) (model.DailyReward, error) {
		attempts++
		if attempts < 3 {
			return model.DailyReward{}, upstream.Classify(0, "sign-in held")
		}
		return model.DailyReward{Name: "Mora", Amount: 10000}, nil
	}

	result := f.actions.ClaimDailyReward(context.Background(), "u1", ClaimOptions{})
	if !strings.Contains(result.Message, "Mora") {
		t.Errorf("message = %q", result.Message)
	}
	if attempts != 3 {
		t.Errorf("claim attempted %d times, want 3", attempts)
	}
}

func TestClaimDailyRewardRetryBudget(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.claim = func(upstream.Game) (model.DailyReward, error) {
		return model.DailyReward{}, upstream.Classify(0, "sign-in held")
	}

	result := f.actions.ClaimDailyReward(context.Background(), "u1", ClaimOptions{})
	if !strings.Contains(result.Message, "failed") {
		t.Errorf("message = %q", result.Message)
	}
	// One initial attempt plus three retries.
	if f.session.claimCalls != 4 {
		t.Errorf("claim attempted %d times, want 4", f.session.claimCalls)
	}
}

func TestClaimDailyRewardAuthExpired(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.claim = func(upstream.Game) (model.DailyReward, error) {
		return model.DailyReward{}, upstream.Classify(-100, "login invalid")
	}

	result := f.actions.ClaimDailyReward(context.Background(), "u1", ClaimOptions{})
	if !result.AuthExpired {
		t.Error("AuthExpired not set for invalid cookie")
	}
	if result.Message != msgCookieExpired {
		t.Errorf("message = %q", result.Message)
	}
}

func TestClaimDailyRewardHonkaiNoCharacter(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.claim = func(game upstream.Game) (model.DailyReward, error) {
		if game == upstream.GameHonkai {
			return model.DailyReward{}, upstream.Classify(-10002, "no role")
		}
		return model.DailyReward{Name: "Primogem", Amount: 60}, nil
	}

	result := f.actions.ClaimDailyReward(context.Background(), "u1", ClaimOptions{Honkai: true})
	if result.AuthExpired {
		t.Error("AuthExpired set for missing honkai role")
	}
	if !strings.Contains(result.Message, "Primogem") {
		t.Errorf("genshin part missing: %q", result.Message)
	}
	if !strings.Contains(result.Message, msgHonkaiNoRole) {
		t.Errorf("honkai part missing: %q", result.Message)
	}
	if f.session.claimCalls != 2 {
		t.Errorf("claim called %d times, want 2", f.session.claimCalls)
	}
}

func TestClaimDailyRewardCommunityFailureNotSurfaced(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	f.session.communityErr = errors.New("bbs unavailable")

	result := f.actions.ClaimDailyReward(context.Background(), "u1", ClaimOptions{})
	if strings.Contains(result.Message, "bbs") {
		t.Errorf("community failure leaked into user message: %q", result.Message)
	}
}

func TestClaimDailyRewardScheduledDoesNotTouch(t *testing.T) {
	f := newFixture(t)
	f.register("u1", "812345678")
	farFuture := time.Now().Add(365 * 24 * time.Hour)
	window := 30 * 24 * time.Hour

	f.tracker.Remove("u1")
	f.actions.ClaimDailyReward(context.Background(), "u1", ClaimOptions{Scheduled: true})
	// No entry should exist: the check backfills one and reports fresh.
	if f.tracker.Expired("u1", farFuture, window) {
		t.Error("scheduled claim touched the activity timestamp")
	}

	f.tracker.Remove("u1")
	f.actions.ClaimDailyReward(context.Background(), "u1", ClaimOptions{})
	// The interactive claim touched, so the far-future check sees a stale
	// real entry rather than a fresh backfill.
	if !f.tracker.Expired("u1", farFuture, window) {
		t.Error("interactive claim did not touch the activity timestamp")
	}
}
