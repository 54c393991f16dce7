package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SDKError is the base error type for all completion boundary errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error returned by an LLM provider.
type ProviderError struct {
	SDKError
	Provider   string
	StatusCode int
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type AccessDeniedError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContentFilterError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// Non-provider errors.

type RequestTimeoutError struct{ SDKError }
type AbortError struct{ SDKError }
type ConfigurationError struct{ SDKError }

// ErrorFromStatusCode maps an HTTP status code to the appropriate error type.
func ErrorFromStatusCode(statusCode int, message, provider string) error {
	return errorFromStatus(statusCode, message, provider, nil)
}

func errorFromStatus(statusCode int, message, provider string, cause error) error {
	pe := ProviderError{
		SDKError:   SDKError{Message: message, Cause: cause},
		Provider:   provider,
		StatusCode: statusCode,
	}

	switch statusCode {
	case 400, 422:
		return &InvalidRequestError{ProviderError: pe}
	case 401:
		return &AuthenticationError{ProviderError: pe}
	case 403:
		return &AccessDeniedError{ProviderError: pe}
	case 404:
		return &NotFoundError{ProviderError: pe}
	case 408:
		return &RequestTimeoutError{SDKError: SDKError{Message: message, Cause: cause}}
	case 413:
		return &ContextLengthError{ProviderError: pe}
	case 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case 500, 502, 503, 504:
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	default:
		pe.Retryable = true
		return &pe
	}
}

// statusCodePattern matches the status prefix backends put on HTTP failures,
// e.g. "API returned unexpected status code: 429: ...".
var statusCodePattern = regexp.MustCompile(`(?i)status code:?\s*(\d{3})\b`)

// ClassifyError converts an opaque backend error into the taxonomy above. An
// HTTP status code in the message decides the type; otherwise the message is
// matched against known phrases. Context cancellation becomes an AbortError.
func ClassifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return &AbortError{SDKError: SDKError{Message: "request cancelled", Cause: err}}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestTimeoutError{SDKError: SDKError{Message: "request timed out", Cause: err}}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	if m := statusCodePattern.FindStringSubmatch(msg); m != nil {
		status, _ := strconv.Atoi(m[1])
		if status == 400 && containsAny(lower, "context length", "too many tokens") {
			return &ContextLengthError{ProviderError: ProviderError{
				SDKError: SDKError{Message: msg, Cause: err}, Provider: provider, StatusCode: status,
			}}
		}
		return errorFromStatus(status, msg, provider, err)
	}

	pe := func(status int, retryable bool) ProviderError {
		return ProviderError{
			SDKError:   SDKError{Message: msg, Cause: err},
			Provider:   provider,
			StatusCode: status,
			Retryable:  retryable,
		}
	}

	switch {
	case containsAny(lower, "unauthorized", "invalid key", "invalid api key", "incorrect api key", "missing the openai api key"):
		return &AuthenticationError{ProviderError: pe(401, false)}
	case strings.Contains(lower, "forbidden"):
		return &AccessDeniedError{ProviderError: pe(403, false)}
	case strings.Contains(lower, "not found"):
		return &NotFoundError{ProviderError: pe(404, false)}
	case strings.Contains(lower, "rate limit"):
		return &RateLimitError{ProviderError: pe(429, true)}
	case containsAny(lower, "context length", "too many tokens"):
		return &ContextLengthError{ProviderError: pe(413, false)}
	case strings.Contains(lower, "internal server"):
		return &ServerError{ProviderError: pe(500, true)}
	case strings.Contains(lower, "timeout"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	case containsAny(lower, "content filter", "safety"):
		return &ContentFilterError{ProviderError: pe(0, false)}
	default:
		p := pe(0, true)
		return &p
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// IsRetryable returns true if the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var (
		configErr  *ConfigurationError
		abortErr   *AbortError
		timeoutErr *RequestTimeoutError
		authErr    *AuthenticationError
		deniedErr  *AccessDeniedError
		notFound   *NotFoundError
		invalidReq *InvalidRequestError
		ctxLen     *ContextLengthError
		filterErr  *ContentFilterError
		rateErr    *RateLimitError
		serverErr  *ServerError
		provErr    *ProviderError
	)
	switch {
	case errors.As(err, &configErr), errors.As(err, &abortErr):
		return false
	case errors.As(err, &timeoutErr):
		return true
	case errors.As(err, &authErr), errors.As(err, &deniedErr), errors.As(err, &notFound),
		errors.As(err, &invalidReq), errors.As(err, &ctxLen), errors.As(err, &filterErr):
		return false
	case errors.As(err, &rateErr), errors.As(err, &serverErr):
		return true
	case errors.As(err, &provErr):
		return provErr.Retryable
	default:
		// Unknown errors default to retryable.
		return true
	}
}
