package binance

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AuthTestSuite struct {
	suite.Suite
}

func (s *AuthTestSuite) TestSignatureIsDeterministicForFixedInputs() {
	auth := NewAuthenticator("key", "secret", 5000)
	auth.UpdateTimestampOffset(time.Unix(1000, 0), time.Unix(1000, 0))

	params1 := url.Values{"symbol": {"BTCUSDT"}}
	params2 := url.Values{"symbol": {"BTCUSDT"}}

	sig1 := auth.Sign(params1)
	sig2 := auth.Sign(params2)
	assert.Equal(s.T(), sig1, sig2)
	assert.Contains(s.T(), sig1, "&signature=")
	assert.Contains(s.T(), sig1, "recvWindow=5000")
}

func (s *AuthTestSuite) TestUpdateTimestampOffsetShiftsSubsequentTimestamps() {
	auth := NewAuthenticator("key", "secret", 5000)
	before := auth.Sign(url.Values{})
	beforeTimestamp := extractParam(before, "timestamp")

	auth.UpdateTimestampOffset(time.Now().Add(time.Hour), time.Now())
	after := auth.Sign(url.Values{})
	afterTimestamp := extractParam(after, "timestamp")

	assert.NotEqual(s.T(), beforeTimestamp, afterTimestamp)
}

func (s *AuthTestSuite) TestRecvWindowOutOfRangeFallsBackToDefault() {
	auth := NewAuthenticator("key", "secret", 999999)
	signed := auth.Sign(url.Values{})
	assert.Contains(s.T(), signed, "recvWindow="+strconv.FormatInt(defaultRecvWindowMs, 10))
}

func extractParam(query, key string) string {
	for _, part := range strings.Split(query, "&") {
		if strings.HasPrefix(part, key+"=") {
			return strings.TrimPrefix(part, key+"=")
		}
	}
	return ""
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}
