package llm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrorType classifies a failed LLM call.
type ErrorType string

const (
	ErrorTypeEndpoint    ErrorType = "endpoint"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeModel       ErrorType = "model"
	ErrorTypeRateLimited ErrorType = "rate_limited"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int    // HTTP status code if known
	Model      string // Model or deployment name if known
	Endpoint   string // Endpoint URL if known; only the host is printed
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{string(e.Type)}

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	if host := endpointHost(e.Endpoint); host != "" {
		parts = append(parts, "endpoint="+host)
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewErrorWithContext creates a structured LLM error carrying model and endpoint.
func NewErrorWithContext(errType ErrorType, message string, retryable bool, cause error, model, endpoint string, statusCode int) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Retryable:  retryable,
		Cause:      cause,
		Model:      model,
		Endpoint:   endpoint,
		StatusCode: statusCode,
	}
}

type classification struct {
	match     func(raw, lower string) bool
	errType   ErrorType
	message   string
	retryable bool
}

var classifications = []classification{
	{
		match: func(raw, lower string) bool {
			return strings.Contains(raw, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key")
		},
		errType: ErrorTypeAuth, message: "authentication failed",
	},
	{
		match: func(raw, lower string) bool {
			return strings.Contains(lower, "model") && (strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist"))
		},
		errType: ErrorTypeModel, message: "model not found",
	},
	{
		match:   func(raw, lower string) bool { return strings.Contains(raw, "404") },
		errType: ErrorTypeEndpoint, message: "endpoint not found",
	},
	{
		match: func(raw, lower string) bool {
			return strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host")
		},
		errType: ErrorTypeEndpoint, message: "connection failed", retryable: true,
	},
	{
		match: func(raw, lower string) bool {
			return strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded")
		},
		errType: ErrorTypeEndpoint, message: "request timeout", retryable: true,
	},
	{
		match: func(raw, lower string) bool {
			return strings.Contains(raw, "429") || strings.Contains(lower, "rate limit")
		},
		errType: ErrorTypeRateLimited, message: "rate limited", retryable: true,
	},
	{
		match: func(raw, lower string) bool {
			return strings.Contains(lower, "content_filter") || strings.Contains(lower, "content management policy")
		},
		errType: ErrorTypeUnknown, message: "content filtered",
	},
	{
		match: func(raw, lower string) bool {
			return strings.Contains(raw, "500") || strings.Contains(raw, "502") ||
				strings.Contains(raw, "503") || strings.Contains(raw, "504") || strings.Contains(lower, "overloaded")
		},
		errType: ErrorTypeEndpoint, message: "server error", retryable: true,
	},
}

// ClassifyError categorizes an error and returns a structured Error.
// An *Error anywhere in the chain is returned as is.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	raw := err.Error()
	lower := strings.ToLower(raw)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(raw, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	for _, c := range classifications {
		if c.match(raw, lower) {
			llmErr = NewError(c.errType, c.message, c.retryable, err)
			llmErr.StatusCode = statusCode
			return llmErr
		}
	}

	llmErr = NewError(ErrorTypeUnknown, "llm error", false, err)
	llmErr.StatusCode = statusCode
	return llmErr
}

// IsRetryable returns true if err is a retryable *Error.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

func endpointHost(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
