package httpx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// TimestampLayout is the ISO-8601 millisecond format OKX expects in the
// OK-ACCESS-TIMESTAMP header and in the signature prehash.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Credentials hold the OKX project API credentials used to sign requests.
type Credentials struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	ProjectID  string
}

// Sign computes the OKX request signature:
// Base64(HMAC-SHA256(secret, timestamp + method + requestPath)).
// requestPath must include the "?query" suffix when a query string is present.
func Sign(secret, timestamp, method, requestPath string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + requestPath))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers assembles the OK-ACCESS authentication header set for one request.
func (c Credentials) Headers(timestamp, method, requestPath string) map[string]string {
	return map[string]string{
		"OK-ACCESS-KEY":        c.APIKey,
		"OK-ACCESS-SIGN":       Sign(c.SecretKey, timestamp, method, requestPath),
		"OK-ACCESS-TIMESTAMP":  timestamp,
		"OK-ACCESS-PASSPHRASE": c.Passphrase,
		"OK-ACCESS-PROJECT":    c.ProjectID,
	}
}
