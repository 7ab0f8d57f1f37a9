package model

// SubscriptionKind selects one of the two automation sweeps.
type SubscriptionKind string

const (
	KindDailyCheckIn SubscriptionKind = "daily"
	KindResinAlert   SubscriptionKind = "resin"
)

// Subscription enrolls a user in one automation sweep, bound to the channel
// the enabling command was issued from. ChannelID is opaque to the core; the
// delivery layer decides what it resolves to. Mention and WithHonkai only
// apply to the daily check-in kind.
type Subscription struct {
	UserID     string `json:"userId"`
	ChannelID  string `json:"channelId"`
	Mention    bool   `json:"mention,omitempty"`
	WithHonkai bool   `json:"withHonkai,omitempty"`
}
