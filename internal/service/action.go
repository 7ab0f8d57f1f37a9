package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genshin_assistant/internal/logbus"
	"genshin_assistant/internal/store/sqlite"
	"genshin_assistant/internal/upstream"
)

const msgHonkaiNoRole = "Honkai 3rd check-in failed: no character information found, please confirm the captain has bound the new HoYoverse pass"

// ActionService is the mutating side: code redemption and daily check-in.
// Both return ready-to-send user text; the scheduler additionally gets a
// flag when the failure means the credential itself is dead.
type ActionService struct {
	accounts *AccountService
	factory  upstream.Factory
	history  *sqlite.Store
	bus      *logbus.Bus

	// retryWait separates attempts of the one documented bounded retry
	// (the zero-retcode sign-in failure).
	retryWait time.Duration
}

func NewActionService(accounts *AccountService, factory upstream.Factory, history *sqlite.Store, bus *logbus.Bus) *ActionService {
	return &ActionService{
		accounts:  accounts,
		factory:   factory,
		history:   history,
		bus:       bus,
		retryWait: 500 * time.Millisecond,
	}
}

// RedeemCode uses a redemption code for the user. Codes are single-use, so
// there is deliberately no retry: a retried redemption that half-landed
// would burn the code.
func (s *ActionService) RedeemCode(ctx context.Context, userID, code string) string {
	acc, err := s.accounts.Gate(userID, true, true)
	if err != nil {
		return err.Error()
	}

	msg := fmt.Sprintf("Redemption code %s used successfully!", code)
	success := true
	if err := s.factory.Session(acc).RedeemCode(ctx, acc.UID, code); err != nil {
		s.bus.UserLog("info", userID, "redeem failed", map[string]any{"code": code, "error": err.Error()})
		msg = fromUpstream(err).Msg
		success = false
	}
	s.record(ctx, sqlite.HistoryEntry{
		UserID: userID, Kind: sqlite.HistoryRedeem, Subject: code, Message: msg, Success: success,
	})
	return msg
}

type ClaimOptions struct {
	Honkai    bool
	Scheduled bool
}

type ClaimResult struct {
	Message string
	// AuthExpired asks the scheduler to prune: the subscription cannot
	// succeed again until the user resubmits a cookie.
	AuthExpired bool
}

// ClaimDailyReward signs the user in for the day. Genshin first, then
// Honkai when subscribed to it; each game fails independently. A trailing
// community check-in is fired best-effort and never surfaces.
func (s *ActionService) ClaimDailyReward(ctx context.Context, userID string, opts ClaimOptions) ClaimResult {
	acc, err := s.accounts.Gate(userID, true, !opts.Scheduled)
	if err != nil {
		return ClaimResult{Message: err.Error(), AuthExpired: AuthExpired(err)}
	}
	session := s.factory.Session(acc)

	msg, expired := s.claimGame(ctx, userID, session, upstream.GameGenshin)
	subject := string(upstream.GameGenshin)
	if opts.Honkai {
		honkaiMsg, honkaiExpired := s.claimGame(ctx, userID, session, upstream.GameHonkai)
		msg = msg + " " + honkaiMsg
		expired = expired || honkaiExpired
		subject += "+" + string(upstream.GameHonkai)
	}

	if err := session.CheckInCommunity(ctx); err != nil {
		s.bus.UserLog("info", userID, "community check-in failed", map[string]any{"error": err.Error()})
	}

	s.record(ctx, sqlite.HistoryEntry{
		UserID: userID, Kind: sqlite.HistoryClaim, Subject: subject, Message: msg, Success: !expired,
	})
	return ClaimResult{Message: msg, AuthExpired: expired}
}

// claimGame claims one game with the bounded zero-retcode retry: that
// failure mode is empirically transient, everything else surfaces at once.
func (s *ActionService) claimGame(ctx context.Context, userID string, session upstream.Session, game upstream.Game) (string, bool) {
	name := game.DisplayName()
	const maxRetries = 3

	for attempt := 0; ; attempt++ {
		reward, err := session.ClaimDailyReward(ctx, game)
		if err == nil {
			if reward.Name == "" {
				return fmt.Sprintf("%s check-in completed!", name), false
			}
			return fmt.Sprintf("%s check-in completed, received %dx %s!", name, reward.Amount, reward.Name), false
		}

		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Kind {
			case upstream.KindAlreadyClaimed:
				return fmt.Sprintf("%s: today's reward was already claimed!", name), false
			case upstream.KindInvalidCookie:
				return msgCookieExpired, true
			case upstream.KindAccountNotFound:
				if game == upstream.GameHonkai {
					return msgHonkaiNoRole, false
				}
			case upstream.KindTransient:
				if apiErr.Retcode == 0 && attempt < maxRetries {
					s.bus.UserLog("info", userID, "check-in retrying on zero retcode", map[string]any{
						"game":    string(game),
						"attempt": attempt + 1,
					})
					if !sleepCtx(ctx, s.retryWait) {
						return fmt.Sprintf("%s check-in aborted", name), false
					}
					continue
				}
			}
		}
		s.bus.UserLog("info", userID, "check-in failed", map[string]any{"game": string(game), "error": err.Error()})
		return fmt.Sprintf("%s check-in failed: %s", name, upstream.MessageOf(err)), false
	}
}

func (s *ActionService) record(ctx context.Context, e sqlite.HistoryEntry) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, e); err != nil {
		s.bus.UserLog("warn", e.UserID, "history append failed", map[string]any{"error": err.Error()})
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
