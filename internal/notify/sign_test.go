package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"
)

func TestSignPayloadFormat(t *testing.T) {
	const secret = "SECxyz"
	const millis = int64(1700000000000)

	got := Sign(secret, millis)

	// Independently rebuild the expected value: the MAC covers
	// "{millis}\n{secret}" keyed with the secret.
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("1700000000000\nSECxyz"))
	want := url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	if got != want {
		t.Fatalf("signature mismatch:\n got %s\nwant %s", got, want)
	}

	// The value must already be query-safe.
	unescaped, err := url.QueryUnescape(got)
	if err != nil {
		t.Fatalf("QueryUnescape: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(unescaped); err != nil {
		t.Fatalf("not base64 after unescape: %v", err)
	}
	if strings.ContainsAny(got, "+/= ") {
		t.Fatalf("signature contains unescaped characters: %s", got)
	}
}

func TestSignIsDeterministicAndKeyed(t *testing.T) {
	if Sign("s1", 1) != Sign("s1", 1) {
		t.Fatalf("same inputs must produce the same signature")
	}
	if Sign("s1", 1) == Sign("s2", 1) {
		t.Fatalf("different secrets must produce different signatures")
	}
	if Sign("s1", 1) == Sign("s1", 2) {
		t.Fatalf("different timestamps must produce different signatures")
	}
}

func TestSignedURL(t *testing.T) {
	u := signedURL("https://example.com/hook?access_token=tok", "sec", 1700000000000)
	if !strings.HasPrefix(u, "https://example.com/hook?access_token=tok&timestamp=1700000000000&sign=") {
		t.Fatalf("unexpected signed url: %s", u)
	}

	// A bare URL gets "?" instead of "&".
	u = signedURL("https://example.com/hook", "sec", 5)
	if !strings.HasPrefix(u, "https://example.com/hook?timestamp=5&sign=") {
		t.Fatalf("unexpected signed url: %s", u)
	}
}
