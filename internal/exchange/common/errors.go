package common

import "fmt"

// AuthenticationError signals a bad key, secret, passphrase, signature or
// clock skew. Never retried.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return "authentication error: " + e.Message }
func (e *AuthenticationError) IsRetryable() bool { return false }

// RateLimitError signals the venue's cap was exceeded. Retried with the
// policy's exponential back-off; retry.Execute does not read RetryAfter, so
// a Retry-After value carried here does not change the delay.
type RateLimitError struct {
	Message    string
	RetryAfter string
}

func (e *RateLimitError) Error() string { return "rate limit exceeded: " + e.Message }
func (e *RateLimitError) IsRetryable() bool { return true }

// InsufficientFundsError signals the account cannot cover the intended
// trade. Never retried.
type InsufficientFundsError struct {
	Message string
}

func (e *InsufficientFundsError) Error() string { return "insufficient funds: " + e.Message }
func (e *InsufficientFundsError) IsRetryable() bool { return false }

// OrderError signals a parameter-invalid, unknown or duplicate order.
// Retryable only when ErrorCode marks it transient (venue-specific codes
// the error mapper flags as such via Retryable).
type OrderError struct {
	ErrorCode string
	Message   string
	Retryable bool
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order error [%s]: %s", e.ErrorCode, e.Message)
}
func (e *OrderError) IsRetryable() bool { return e.Retryable }

// ConnectionError signals I/O, timeout, 5xx, clock skew or a WebSocket
// drop. Retryable flag is set per occurrence by the mapper.
type ConnectionError struct {
	Message   string
	Retryable bool
}

func (e *ConnectionError) Error() string { return "connection error: " + e.Message }
func (e *ConnectionError) IsRetryable() bool { return e.Retryable }

// ExchangeError is a generic mapped venue error with the original code
// preserved. Retryable unless explicitly marked otherwise.
type ExchangeError struct {
	ErrorCode string
	Message   string
	Retryable bool
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange error [%s]: %s", e.ErrorCode, e.Message)
}
func (e *ExchangeError) IsRetryable() bool { return e.Retryable }

// UnsupportedExchangeError signals a Connector Factory lookup miss. Never
// retried.
type UnsupportedExchangeError struct {
	Exchange Exchange
}

func (e *UnsupportedExchangeError) Error() string {
	return fmt.Sprintf("unsupported exchange: %s", e.Exchange)
}
func (e *UnsupportedExchangeError) IsRetryable() bool { return false }

// StructuredError is the shape a core boundary (e.g. cmd/traderd) returns
// to the external API-server collaborator: never an opaque stack.
type StructuredError struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	ErrorCode string `json:"error_code,omitempty"`
}

// ToStructuredError classifies any of the seven taxonomy errors (or an
// unrecognized error) into the wire shape.
func ToStructuredError(err error) StructuredError {
	if err == nil {
		return StructuredError{}
	}
	switch e := err.(type) {
	case *AuthenticationError:
		return StructuredError{Kind: "Authentication", Message: e.Message, Retryable: false}
	case *RateLimitError:
		return StructuredError{Kind: "RateLimit", Message: e.Message, Retryable: true}
	case *InsufficientFundsError:
		return StructuredError{Kind: "InsufficientFunds", Message: e.Message, Retryable: false}
	case *OrderError:
		return StructuredError{Kind: "Order", Message: e.Message, Retryable: e.Retryable, ErrorCode: e.ErrorCode}
	case *ConnectionError:
		return StructuredError{Kind: "Connection", Message: e.Message, Retryable: e.Retryable}
	case *ExchangeError:
		return StructuredError{Kind: "Exchange", Message: e.Message, Retryable: e.Retryable, ErrorCode: e.ErrorCode}
	case *UnsupportedExchangeError:
		return StructuredError{Kind: "UnsupportedExchange", Message: e.Error(), Retryable: false}
	default:
		return StructuredError{Kind: "Unknown", Message: err.Error(), Retryable: false}
	}
}
