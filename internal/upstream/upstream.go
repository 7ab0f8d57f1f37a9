package upstream

import (
	"context"

	"genshin_assistant/internal/model"
)

// Game identifies which game a daily check-in claim targets.
type Game string

const (
	GameGenshin Game = "genshin"
	GameHonkai  Game = "honkai"
)

func (g Game) DisplayName() string {
	if g == GameHonkai {
		return "Honkai 3rd"
	}
	return "Genshin Impact"
}

// Session is one authenticated view of the upstream account service. A
// session is built from a UserAccount snapshot for a single logical
// operation and thrown away; the stored credential may change between
// operations, so sessions are never reused or cached.
type Session interface {
	ListAccounts(ctx context.Context) ([]model.GameAccount, error)
	Notes(ctx context.Context, uid string) (model.Notes, error)
	SpiralAbyss(ctx context.Context, uid string, previous bool) (model.SpiralAbyss, error)
	Diary(ctx context.Context, uid string, month int) (model.Diary, error)
	RecordCards(ctx context.Context) ([]model.RecordCard, error)
	PartialStats(ctx context.Context, uid string) (model.PartialStats, error)
	Characters(ctx context.Context, uid string) ([]model.Character, error)
	RedeemCode(ctx context.Context, uid, code string) error
	ClaimDailyReward(ctx context.Context, game Game) (model.DailyReward, error)
	CheckInCommunity(ctx context.Context) error
}

// Factory builds sessions. The concrete factory carries shared plumbing
// (rate limiter, HTTP settings); tests substitute their own.
type Factory interface {
	Session(account model.UserAccount) Session
}
