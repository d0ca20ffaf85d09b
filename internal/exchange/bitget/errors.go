package bitget

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

// apiErrorResponse is Bitget's standard error body: {"code": "40099", "msg": "..."}
type apiErrorResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// environmentMismatchCode is returned when a signed request is missing the
// paptrading header the venue expects for the current environment, or
// carries keys issued for the other environment.
const environmentMismatchCode = "40099"

// MapError classifies a Bitget REST error into the closed taxonomy, given
// the HTTP status and response body. Bucket boundaries mirror Binance's:
// rate limit, authentication, insufficient funds, order, parameter/exchange,
// connection. 40099 is a non-retryable environment mismatch, surfaced as an
// AuthenticationError since it signals bad credentials/headers for the
// environment in use, not a transient condition.
func MapError(status int, body []byte) error {
	if status == http.StatusTooManyRequests {
		return &common.RateLimitError{Message: "HTTP 429 too many requests"}
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &common.AuthenticationError{Message: fmt.Sprintf("HTTP %d", status)}
	}
	if status >= 500 {
		return &common.ConnectionError{Message: fmt.Sprintf("HTTP %d server error", status), Retryable: true}
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == "" {
		return &common.ExchangeError{ErrorCode: strconv.Itoa(status), Message: string(body), Retryable: false}
	}
	return mapCode(apiErr.Code, apiErr.Msg)
}

func mapCode(code, msg string) error {
	switch code {
	case environmentMismatchCode:
		return &common.AuthenticationError{Message: "environment mismatch: " + msg}
	case "40001", "40008", "40019", "40037":
		return &common.AuthenticationError{Message: msg}
	case "40429", "429":
		return &common.RateLimitError{Message: msg}
	case "43012", "43013":
		return &common.InsufficientFundsError{Message: msg}
	case "43001", "43011", "43025":
		return &common.OrderError{ErrorCode: code, Message: msg, Retryable: false}
	case "40002", "40003", "40009", "40010":
		return &common.ExchangeError{ErrorCode: code, Message: msg, Retryable: false}
	default:
		return &common.ExchangeError{ErrorCode: code, Message: msg, Retryable: true}
	}
}
