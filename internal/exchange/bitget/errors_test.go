package bitget

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

type ErrorMapperTestSuite struct {
	suite.Suite
}

func (s *ErrorMapperTestSuite) body(code, msg string) []byte {
	return []byte(`{"code":"` + code + `","msg":"` + msg + `"}`)
}

func (s *ErrorMapperTestSuite) TestEnvironmentMismatchIsNonRetryableAuthentication() {
	err := MapError(http.StatusBadRequest, s.body("40099", "environment mismatch"))
	var authErr *common.AuthenticationError
	assert.ErrorAs(s.T(), err, &authErr)
	assert.False(s.T(), authErr.IsRetryable())
}

func (s *ErrorMapperTestSuite) TestAuthenticationCodes() {
	for _, code := range []string{"40001", "40008", "40019", "40037"} {
		err := MapError(http.StatusBadRequest, s.body(code, "auth"))
		var authErr *common.AuthenticationError
		assert.ErrorAs(s.T(), err, &authErr, "code %s", code)
	}
}

func (s *ErrorMapperTestSuite) TestHTTPAuthStatusCodes() {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		err := MapError(status, nil)
		var authErr *common.AuthenticationError
		assert.ErrorAs(s.T(), err, &authErr)
	}
}

func (s *ErrorMapperTestSuite) TestRateLimitCodes() {
	for _, code := range []string{"40429", "429"} {
		err := MapError(http.StatusOK, s.body(code, "rate limit"))
		var rateErr *common.RateLimitError
		assert.ErrorAs(s.T(), err, &rateErr, "code %s", code)
	}
}

func (s *ErrorMapperTestSuite) TestHTTP429MapsToRateLimit() {
	err := MapError(http.StatusTooManyRequests, nil)
	var rateErr *common.RateLimitError
	assert.ErrorAs(s.T(), err, &rateErr)
}

func (s *ErrorMapperTestSuite) TestInsufficientFunds() {
	for _, code := range []string{"43012", "43013"} {
		err := MapError(http.StatusBadRequest, s.body(code, "insufficient"))
		var fundsErr *common.InsufficientFundsError
		assert.ErrorAs(s.T(), err, &fundsErr, "code %s", code)
	}
}

func (s *ErrorMapperTestSuite) TestOrderCodesAreNonRetryable() {
	for _, code := range []string{"43001", "43011", "43025"} {
		err := MapError(http.StatusBadRequest, s.body(code, "order"))
		var orderErr *common.OrderError
		assert.ErrorAs(s.T(), err, &orderErr, "code %s", code)
		assert.False(s.T(), orderErr.IsRetryable())
	}
}

func (s *ErrorMapperTestSuite) TestParameterExchangeCodesAreNonRetryable() {
	for _, code := range []string{"40002", "40003", "40009", "40010"} {
		err := MapError(http.StatusBadRequest, s.body(code, "param"))
		var exErr *common.ExchangeError
		assert.ErrorAs(s.T(), err, &exErr, "code %s", code)
		assert.False(s.T(), exErr.IsRetryable())
	}
}

func (s *ErrorMapperTestSuite) TestUnknownCodeIsRetryableExchangeError() {
	err := MapError(http.StatusBadRequest, s.body("99999", "unknown"))
	var exErr *common.ExchangeError
	assert.ErrorAs(s.T(), err, &exErr)
	assert.True(s.T(), exErr.IsRetryable())
}

func (s *ErrorMapperTestSuite) TestServerErrorsAreRetryableConnection() {
	for _, status := range []int{500, 502, 503, 504} {
		err := MapError(status, nil)
		var connErr *common.ConnectionError
		assert.ErrorAs(s.T(), err, &connErr, "status %d", status)
		assert.True(s.T(), connErr.IsRetryable())
	}
}

func (s *ErrorMapperTestSuite) TestNonJSONBodyCollapsesToExchangeError() {
	err := MapError(http.StatusBadRequest, []byte("not json"))
	var exErr *common.ExchangeError
	assert.ErrorAs(s.T(), err, &exErr)
}

func TestErrorMapperSuite(t *testing.T) {
	suite.Run(t, new(ErrorMapperTestSuite))
}
