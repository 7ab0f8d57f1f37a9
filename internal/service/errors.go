package service

import (
	"errors"

	"genshin_assistant/internal/upstream"
)

// Reason tags a user-facing failure so callers (the scheduler in
// particular) can react without parsing message text.
type Reason int

const (
	// ReasonUpstream is an upstream-reported failure surfaced verbatim.
	ReasonUpstream Reason = iota
	// ReasonBadInput rejects malformed input before any upstream call.
	ReasonBadInput
	// ReasonNotRegistered means the gate found no usable stored data.
	ReasonNotRegistered
	// ReasonAuthExpired means the stored cookie no longer authenticates.
	ReasonAuthExpired
	// ReasonNotPublic means the user must flip a switch on the Hoyolab side.
	ReasonNotPublic
	// ReasonNotFound is a lookup miss that is the user's to fix (wrong
	// uid, missing record card).
	ReasonNotFound
)

// UserError is a failure whose message is meant for the user who caused
// it: always actionable, never an internal detail.
type UserError struct {
	Reason Reason
	Msg    string
}

func (e *UserError) Error() string { return e.Msg }

func userErr(reason Reason, msg string) *UserError {
	return &UserError{Reason: reason, Msg: msg}
}

// Fixed gate and mapping messages. Kept in one place so every component
// tells the user the same thing.
const (
	msgNotRegistered = "Cannot find this user, please submit a cookie first (use `/cookie` for instructions)"
	msgNoUID         = "Cannot find a character UID, please set one first (use `/uid` to set it)"
	msgCookieExpired = "The cookie has expired, please submit a fresh cookie"
	msgNotPublic     = "The real-time notes feature is not enabled, please enable it on the Hoyolab website or app first"
	msgBadCookie     = "Invalid cookie, please re-enter (use `/cookie` for instructions)"
	msgNoAccounts    = "There are no game characters on this account, the cookie was not saved"
	msgBadUIDLen     = "The UID length is wrong, please re-enter a correct 9-digit UID"
	msgBadUIDPrefix  = "The UID does not belong to any known server, please check it"
	msgUIDNotFound   = "Cannot find character information for this UID, please confirm it is correct"
	msgAccountCheck  = "Failed to confirm account information, please resubmit the cookie or try again later"
	msgCardNotFound  = "Cannot find the Genshin record card"
)

// fromUpstream folds a classified upstream failure into a user-facing
// error. Unclassified messages pass through verbatim; the upstream service
// already phrases them for players.
func fromUpstream(err error) *UserError {
	switch upstream.KindOf(err) {
	case upstream.KindDataNotPublic:
		return userErr(ReasonNotPublic, msgNotPublic)
	case upstream.KindInvalidCookie:
		return userErr(ReasonAuthExpired, msgCookieExpired)
	default:
		return userErr(ReasonUpstream, upstream.MessageOf(err))
	}
}

// AuthExpired reports whether an error means the stored credential is no
// longer valid. The scheduler prunes subscriptions on it.
func AuthExpired(err error) bool {
	var ue *UserError
	return errors.As(err, &ue) && ue.Reason == ReasonAuthExpired
}

// NotRegistered reports whether the gate rejected the user outright.
func NotRegistered(err error) bool {
	var ue *UserError
	return errors.As(err, &ue) && ue.Reason == ReasonNotRegistered
}
