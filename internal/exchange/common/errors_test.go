package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ErrorsTestSuite struct {
	suite.Suite
}

func (s *ErrorsTestSuite) TestNonRetryableKinds() {
	nonRetryable := []error{
		&AuthenticationError{Message: "bad signature"},
		&InsufficientFundsError{Message: "not enough USDT"},
		&UnsupportedExchangeError{Exchange: "KRAKEN"},
	}
	for _, err := range nonRetryable {
		r, ok := err.(interface{ IsRetryable() bool })
		assert.True(s.T(), ok)
		assert.False(s.T(), r.IsRetryable())
	}
}

func (s *ErrorsTestSuite) TestRetryableKinds() {
	assert.True(s.T(), (&RateLimitError{Message: "too many requests"}).IsRetryable())
	assert.True(s.T(), (&ConnectionError{Message: "timeout", Retryable: true}).IsRetryable())
	assert.True(s.T(), (&ExchangeError{ErrorCode: "500", Retryable: true}).IsRetryable())
	assert.False(s.T(), (&ExchangeError{ErrorCode: "-1013", Retryable: false}).IsRetryable())
}

func (s *ErrorsTestSuite) TestOrderErrorRetryableFlag() {
	transient := &OrderError{ErrorCode: "-1021", Retryable: true}
	permanent := &OrderError{ErrorCode: "-2010", Retryable: false}
	assert.True(s.T(), transient.IsRetryable())
	assert.False(s.T(), permanent.IsRetryable())
}

func (s *ErrorsTestSuite) TestToStructuredErrorRoundTrip() {
	se := ToStructuredError(&OrderError{ErrorCode: "-2011", Message: "unknown order", Retryable: false})
	assert.Equal(s.T(), "Order", se.Kind)
	assert.Equal(s.T(), "-2011", se.ErrorCode)
	assert.False(s.T(), se.Retryable)
}

func (s *ErrorsTestSuite) TestToStructuredErrorUnknown() {
	se := ToStructuredError(assertError{"boom"})
	assert.Equal(s.T(), "Unknown", se.Kind)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
