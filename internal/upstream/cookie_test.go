package upstream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleCookie = "ltoken=AbCdEf0123456789abcdef; ltuid=123456; cookie_token=ZyXwVu9876543210zyxwvu; account_id=123456"

func TestNormalizeCookie(t *testing.T) {
	got, err := NormalizeCookie(sampleCookie)
	if err != nil {
		t.Fatalf("NormalizeCookie: %v", err)
	}
	if got != sampleCookie {
		t.Errorf("NormalizeCookie = %q, want %q", got, sampleCookie)
	}
}

// The normalized string goes on the wire as the Cookie header verbatim,
// so a standard server-side parser must recover all four pairs.
func TestNormalizeCookieWireFormat(t *testing.T) {
	normalized, err := NormalizeCookie(sampleCookie)
	if err != nil {
		t.Fatalf("NormalizeCookie: %v", err)
	}

	var got []*http.Cookie
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Cookies()
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Cookie", normalized)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	names := make(map[string]string, len(got))
	for _, c := range got {
		names[c.Name] = c.Value
	}
	if len(got) != 4 {
		t.Fatalf("server parsed %d cookies, want 4: %v", len(got), names)
	}
	want := map[string]string{
		"ltoken":       "AbCdEf0123456789abcdef",
		"ltuid":        "123456",
		"cookie_token": "ZyXwVu9876543210zyxwvu",
		"account_id":   "123456",
	}
	for name, value := range want {
		if names[name] != value {
			t.Errorf("cookie %s = %q, want %q", name, names[name], value)
		}
	}
}

func TestNormalizeCookieExtraNoise(t *testing.T) {
	raw := "_ga=GA1; " + sampleCookie + "; mi18nLang=en-us"
	got, err := NormalizeCookie(raw)
	if err != nil {
		t.Fatalf("NormalizeCookie: %v", err)
	}
	if strings.Contains(got, "_ga") || strings.Contains(got, "mi18nLang") {
		t.Errorf("normalized cookie kept noise tokens: %q", got)
	}
}

func TestNormalizeCookieMissingToken(t *testing.T) {
	cases := []string{
		"",
		"ltoken=AbCdEf0123456789abcdef; ltuid=123456",
		"ltoken=AbCdEf0123456789abcdef; ltuid=123456; cookie_token=ZyXwVu9876543210zyxwvu",
		"cookie_token=ZyXwVu9876543210zyxwvu; account_id=123456",
		"ltoken=short; ltuid=123456; cookie_token=ZyXwVu9876543210zyxwvu; account_id=123456",
	}
	for _, raw := range cases {
		if _, err := NormalizeCookie(raw); err == nil {
			t.Errorf("NormalizeCookie(%q): want error, got nil", raw)
		}
	}
}

func TestLtuidOf(t *testing.T) {
	cookie, err := NormalizeCookie(sampleCookie)
	if err != nil {
		t.Fatalf("NormalizeCookie: %v", err)
	}
	if got := LtuidOf(cookie); got != "123456" {
		t.Errorf("LtuidOf = %q, want 123456", got)
	}
}
