package binance

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

// MapError classifies a Binance REST error into the closed taxonomy, given
// the HTTP status code and response body. A 2xx status never reaches here.
// Mapping table: -1003/429/418 -> RateLimit; -1021 -> Connection(retryable,
// "clock skew"); -1022/-2014/-2015/401/403 -> Authentication; -2010 ->
// InsufficientFunds; -2011/-2013/-1013/-1014 -> Order; -1100..-1106 ->
// Exchange(parameter); -1000..-1 -> Connection(retryable); 5xx -> Connection
// (retryable). A non-JSON body collapses to ExchangeError(status, body).
func MapError(status int, body []byte) error {
	if status == http.StatusTooManyRequests { // 429
		return &common.RateLimitError{Message: "HTTP 429 too many requests"}
	}
	if status == 418 {
		return &common.RateLimitError{Message: "HTTP 418 IP banned for repeated rate-limit violations"}
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &common.AuthenticationError{Message: fmt.Sprintf("HTTP %d", status)}
	}
	if status >= 500 {
		return &common.ConnectionError{Message: fmt.Sprintf("HTTP %d server error", status), Retryable: true}
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == 0 {
		return &common.ExchangeError{ErrorCode: fmt.Sprintf("%d", status), Message: string(body), Retryable: false}
	}
	return mapCode(apiErr.Code, apiErr.Msg)
}

func mapCode(code int64, msg string) error {
	switch {
	case code == -1003:
		return &common.RateLimitError{Message: msg}
	case code == -1021:
		return &common.ConnectionError{Message: "clock skew: " + msg, Retryable: true}
	case code == -1022 || code == -2014 || code == -2015:
		return &common.AuthenticationError{Message: msg}
	case code == -2010:
		return &common.InsufficientFundsError{Message: msg}
	case code == -2011 || code == -2013 || code == -1013 || code == -1014:
		return &common.OrderError{ErrorCode: fmt.Sprintf("%d", code), Message: msg, Retryable: false}
	case code <= -1100 && code >= -1106:
		return &common.ExchangeError{ErrorCode: fmt.Sprintf("%d", code), Message: msg, Retryable: false}
	case code <= -1 && code >= -1000:
		return &common.ConnectionError{Message: msg, Retryable: true}
	default:
		return &common.ExchangeError{ErrorCode: fmt.Sprintf("%d", code), Message: msg, Retryable: true}
	}
}
