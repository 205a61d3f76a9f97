package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Sign computes the webhook request signature for the given millisecond
// timestamp: HMAC-SHA256 over "{millis}\n{secret}" keyed with the secret,
// base64-encoded, then URL-escaped. The result goes into the "sign" query
// parameter as-is.
func Sign(secret string, millis int64) string {
	payload := fmt.Sprintf("%d\n%s", millis, secret)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	digest := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return url.QueryEscape(digest)
}

// signedURL appends timestamp and sign query parameters to the webhook URL.
// The sign value is already escaped; append it verbatim so it is not
// escaped twice.
func signedURL(base, secret string, millis int64) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%stimestamp=%d&sign=%s", base, sep, millis, Sign(secret, millis))
}
