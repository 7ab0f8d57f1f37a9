package upstream

import (
	"errors"
	"regexp"
	"strings"
)

// A usable Hoyolab session cookie must carry all four of these tokens.
// Users paste the whole browser cookie header; everything else in it is
// noise and is dropped during normalization.
var (
	ltokenPattern      = regexp.MustCompile(`ltoken=[0-9A-Za-z]{20,}`)
	ltuidPattern       = regexp.MustCompile(`ltuid=[0-9]{3,}`)
	cookieTokenPattern = regexp.MustCompile(`cookie_token=[0-9A-Za-z]{20,}`)
	accountIDPattern   = regexp.MustCompile(`account_id=[0-9]{3,}`)
)

// ErrMalformedCookie is returned when any required token is missing; the
// raw input must never be stored in that case.
var ErrMalformedCookie = errors.New("cookie is missing a required token")

// NormalizeCookie extracts the four required tokens from a raw cookie
// string and recombines them in a fixed order. The result is sent as-is
// in the Cookie header, so pairs are "; "-separated per RFC 6265.
func NormalizeCookie(raw string) (string, error) {
	parts := []string{
		ltokenPattern.FindString(raw),
		ltuidPattern.FindString(raw),
		cookieTokenPattern.FindString(raw),
		accountIDPattern.FindString(raw),
	}
	for _, p := range parts {
		if p == "" {
			return "", ErrMalformedCookie
		}
	}
	return strings.Join(parts, "; "), nil
}

// LtuidOf pulls the Hoyolab account id out of a normalized cookie. The
// record-card endpoint is keyed by it rather than by the game uid.
func LtuidOf(cookie string) string {
	m := ltuidPattern.FindString(cookie)
	return strings.TrimPrefix(m, "ltuid=")
}
