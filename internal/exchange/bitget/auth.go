package bitget

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"sync/atomic"
	"time"
)

// Authenticator signs Bitget requests: prehash = timestamp + METHOD +
// requestPath + (queryString, leading '?', or body) signed with
// HMAC-SHA256 and base64-encoded. Immutable apart from timestampOffset.
type Authenticator struct {
	apiKey          string
	secretKey       string
	passphrase      string
	testnet         bool
	timestampOffset atomic.Int64 // nanoseconds, server_time - local_time
}

// NewAuthenticator builds an Authenticator for the given credentials.
func NewAuthenticator(apiKey, secretKey, passphrase string, testnet bool) *Authenticator {
	return &Authenticator{apiKey: apiKey, secretKey: secretKey, passphrase: passphrase, testnet: testnet}
}

// UpdateTimestampOffset records the clock offset from a server-time probe.
func (a *Authenticator) UpdateTimestampOffset(serverTime, localTime time.Time) {
	a.timestampOffset.Store(int64(serverTime.Sub(localTime)))
}

func (a *Authenticator) adjustedNowMillis() int64 {
	offset := time.Duration(a.timestampOffset.Load())
	return time.Now().Add(offset).UnixMilli()
}

// Headers returns the full signed-request header set for one request.
// queryOrBody is the query string (with a leading '?' if non-empty) for
// GET/DELETE, or the raw JSON body for POST.
func (a *Authenticator) Headers(method, requestPath, queryOrBody string) map[string]string {
	timestamp := strconv.FormatInt(a.adjustedNowMillis(), 10)
	prehash := timestamp + method + requestPath + queryOrBody

	mac := hmac.New(sha256.New, []byte(a.secretKey))
	mac.Write([]byte(prehash))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headers := map[string]string{
		"ACCESS-KEY":        a.apiKey,
		"ACCESS-SIGN":       signature,
		"ACCESS-TIMESTAMP":  timestamp,
		"ACCESS-PASSPHRASE": a.passphrase,
		"Content-Type":      "application/json",
	}
	if a.testnet {
		headers["paptrading"] = "1"
	}
	return headers
}
