package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"
)

// Authenticator signs Binance requests with HMAC-SHA256 over the canonical
// query string, appending timestamp and recvWindow before signing. Immutable
// apart from timestampOffset, refreshed atomically by the clock-sync step
// during Connect.
type Authenticator struct {
	apiKey          string
	secretKey       string
	recvWindowMs    int64
	timestampOffset atomic.Int64 // nanoseconds, server_time - local_time
}

const (
	minRecvWindowMs     = 1000
	maxRecvWindowMs     = 60000
	defaultRecvWindowMs = 5000
)

// NewAuthenticator builds an Authenticator. A recvWindow outside
// [1000, 60000]ms is replaced by the 5000ms default.
func NewAuthenticator(apiKey, secretKey string, recvWindowMs int64) *Authenticator {
	if recvWindowMs < minRecvWindowMs || recvWindowMs > maxRecvWindowMs {
		recvWindowMs = defaultRecvWindowMs
	}
	return &Authenticator{apiKey: apiKey, secretKey: secretKey, recvWindowMs: recvWindowMs}
}

// UpdateTimestampOffset sets the clock offset from a venue server-time
// observation, in nanoseconds (serverTime - localTime at the moment of
// the probe). Safe for concurrent use.
func (a *Authenticator) UpdateTimestampOffset(serverTime, localTime time.Time) {
	a.timestampOffset.Store(int64(serverTime.Sub(localTime)))
}

// adjustedNowMillis returns the current time adjusted by the stored clock
// offset, in Unix milliseconds.
func (a *Authenticator) adjustedNowMillis() int64 {
	offset := time.Duration(a.timestampOffset.Load())
	return time.Now().Add(offset).UnixMilli()
}

// Sign appends timestamp, recvWindow and signature to params, returning the
// canonical query string ready to append to a request (or send as a form
// body). The signature covers every parameter present, including timestamp
// and recvWindow, in the order url.Values.Encode sorts them.
func (a *Authenticator) Sign(params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(a.adjustedNowMillis(), 10))
	params.Set("recvWindow", strconv.FormatInt(a.recvWindowMs, 10))

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(a.secretKey))
	mac.Write([]byte(query))
	signature := hex.EncodeToString(mac.Sum(nil))

	return query + "&signature=" + signature
}

// APIKeyHeader is the header name carrying the API key on signed and
// unsigned-but-keyed requests alike.
const APIKeyHeader = "X-MBX-APIKEY"

// APIKey returns the configured key, for setting APIKeyHeader.
func (a *Authenticator) APIKey() string { return a.apiKey }
