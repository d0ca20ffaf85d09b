package bitget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AuthTestSuite struct {
	suite.Suite
}

func (s *AuthTestSuite) TestHeadersAreDeterministicForFixedInputs() {
	auth := NewAuthenticator("key", "secret", "pass", false)
	auth.UpdateTimestampOffset(time.Unix(1000, 0), time.Unix(1000, 0))

	h1 := auth.Headers("GET", "/api/v2/spot/account/assets", "")
	h2 := auth.Headers("GET", "/api/v2/spot/account/assets", "")
	assert.Equal(s.T(), h1["ACCESS-SIGN"], h2["ACCESS-SIGN"])
	assert.Equal(s.T(), "key", h1["ACCESS-KEY"])
	assert.Equal(s.T(), "pass", h1["ACCESS-PASSPHRASE"])
	assert.Equal(s.T(), "application/json", h1["Content-Type"])
}

func (s *AuthTestSuite) TestDifferentBodyChangesSignature() {
	auth := NewAuthenticator("key", "secret", "pass", false)
	auth.UpdateTimestampOffset(time.Unix(1000, 0), time.Unix(1000, 0))

	h1 := auth.Headers("POST", "/api/v2/spot/trade/place-order", `{"symbol":"BTCUSDT"}`)
	h2 := auth.Headers("POST", "/api/v2/spot/trade/place-order", `{"symbol":"ETHUSDT"}`)
	assert.NotEqual(s.T(), h1["ACCESS-SIGN"], h2["ACCESS-SIGN"])
}

func (s *AuthTestSuite) TestTestnetSetsPaptradingHeader() {
	auth := NewAuthenticator("key", "secret", "pass", true)
	h := auth.Headers("GET", "/api/v2/spot/account/assets", "")
	assert.Equal(s.T(), "1", h["paptrading"])

	prodAuth := NewAuthenticator("key", "secret", "pass", false)
	prodHeaders := prodAuth.Headers("GET", "/api/v2/spot/account/assets", "")
	_, present := prodHeaders["paptrading"]
	assert.False(s.T(), present)
}

func (s *AuthTestSuite) TestUpdateTimestampOffsetShiftsSubsequentTimestamps() {
	auth := NewAuthenticator("key", "secret", "pass", false)
	before := auth.Headers("GET", "/api/v2/spot/account/assets", "")["ACCESS-TIMESTAMP"]

	auth.UpdateTimestampOffset(time.Now().Add(time.Hour), time.Now())
	after := auth.Headers("GET", "/api/v2/spot/account/assets", "")["ACCESS-TIMESTAMP"]

	assert.NotEqual(s.T(), before, after)
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}
