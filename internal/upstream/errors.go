package upstream

import (
	"errors"
	"fmt"
)

// Kind is the closed set of upstream failure categories. Everything the
// remote service reports is folded into one of these exactly once, here;
// downstream code matches on Kind and never inspects retcodes.
type Kind int

const (
	// KindUnclassified is any upstream-reported failure with no special
	// handling; its message is surfaced verbatim.
	KindUnclassified Kind = iota
	// KindDataNotPublic means the feature is disabled on the Hoyolab side
	// and the user can enable it themselves.
	KindDataNotPublic
	// KindInvalidCookie means the stored session cookie is expired or
	// revoked; the user must submit a fresh one.
	KindInvalidCookie
	// KindAlreadyClaimed means the daily reward (or code) was claimed
	// before. Treated as an idempotent no-op, not a failure.
	KindAlreadyClaimed
	// KindAccountNotFound means no game role is bound for the requested
	// game. Not retryable.
	KindAccountNotFound
	// KindTransient covers failures that empirically succeed on a prompt
	// retry, most notably the zero-retcode sign-in failure.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindDataNotPublic:
		return "data_not_public"
	case KindInvalidCookie:
		return "invalid_cookie"
	case KindAlreadyClaimed:
		return "already_claimed"
	case KindAccountNotFound:
		return "account_not_found"
	case KindTransient:
		return "transient"
	default:
		return "unclassified"
	}
}

// APIError is an upstream failure after classification. Retcode and Message
// are kept for logging and for verbatim surfacing of unclassified failures.
type APIError struct {
	Kind    Kind
	Retcode int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream [retcode %d] %s", e.Retcode, e.Message)
}

// Classify maps an upstream (retcode, message) pair onto the taxonomy.
// The retcode table follows the observed Hoyolab behavior:
// 10102 data not public; -100/10001/10103 cookie invalid; -5003 reward
// already claimed; -10002 no game role; retcode 0 reported as a failure is
// the transient sign-in case, -1004 is plain rate limiting.
func Classify(retcode int, message string) *APIError {
	kind := KindUnclassified
	switch retcode {
	case 10102:
		kind = KindDataNotPublic
	case -100, 10001, 10103:
		kind = KindInvalidCookie
	case -5003:
		kind = KindAlreadyClaimed
	case -10002:
		kind = KindAccountNotFound
	case 0, -1004:
		kind = KindTransient
	}
	return &APIError{Kind: kind, Retcode: retcode, Message: message}
}

// KindOf extracts the classified kind from an error chain. Non-upstream
// errors (transport failures, timeouts) count as transient: the service
// itself said nothing.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

// MessageOf returns the upstream-reported message when there is one, else
// the plain error text.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
