package github

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
)

// ErrorType represents different categories of GitHub API errors
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error represents a structured error from GitHub operations
type Error struct {
	Type       ErrorType     `json:"type"`
	Message    string        `json:"message"`
	Cause      error         `json:"-"`
	Resource   string        `json:"resource,omitempty"`
	Field      string        `json:"field,omitempty"`
	Code       string        `json:"code,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Retryable  bool          `json:"retryable"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s error for %s: %s", e.Type, e.Resource, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new Error with the specified type and message
func NewError(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableErrorType(errorType),
	}
}

// ErrorTypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is
// not a structured GitHub error.
func ErrorTypeOf(err error) ErrorType {
	var ghErr *Error
	if errors.As(err, &ghErr) {
		return ghErr.Type
	}
	return ErrorTypeUnknown
}

// IsConflict reports whether err signals that the resource already exists.
func IsConflict(err error) bool {
	return err != nil && ErrorTypeOf(err) == ErrorTypeConflict
}

// IsNotFound reports whether err is a 404 from GitHub.
func IsNotFound(err error) bool {
	return err != nil && ErrorTypeOf(err) == ErrorTypeNotFound
}

// IsRateLimit reports whether err is a primary or secondary rate limit error.
func IsRateLimit(err error) bool {
	return err != nil && ErrorTypeOf(err) == ErrorTypeRateLimit
}

// WrapGitHubError wraps a GitHub API error into our structured error type
func WrapGitHubError(err error, resource string) *Error {
	if err == nil {
		return nil
	}

	// Already structured: only fill in the missing resource
	var ghErr *Error
	if errors.As(err, &ghErr) {
		if ghErr.Resource == "" {
			ghErr.Resource = resource
		}
		return ghErr
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &Error{
			Type:       ErrorTypeRateLimit,
			Message:    fmt.Sprintf("Rate limit exceeded. Reset at %v", rateErr.Rate.Reset.Time),
			Cause:      err,
			Resource:   resource,
			StatusCode: responseStatus(rateErr.Response),
			Retryable:  true,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		wrapped := &Error{
			Type:       ErrorTypeRateLimit,
			Message:    "Secondary rate limit triggered. Slow down before retrying",
			Cause:      err,
			Resource:   resource,
			StatusCode: responseStatus(abuseErr.Response),
			Retryable:  true,
		}
		if abuseErr.RetryAfter != nil {
			wrapped.RetryAfter = *abuseErr.RetryAfter
		}
		return wrapped
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return parseGitHubAPIError(respErr, resource)
	}

	if isNetworkError(err) {
		return &Error{
			Type:      ErrorTypeNetwork,
			Message:   "Network error occurred. Please check your connection and try again",
			Cause:     err,
			Resource:  resource,
			Retryable: true,
		}
	}

	return &Error{
		Type:      ErrorTypeUnknown,
		Message:   err.Error(),
		Cause:     err,
		Resource:  resource,
		Retryable: false,
	}
}

func responseStatus(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// parseGitHubAPIError parses GitHub API error responses into structured errors
func parseGitHubAPIError(ghErr *github.ErrorResponse, resource string) *Error {
	baseErr := &Error{
		Resource:   resource,
		Cause:      ghErr,
		StatusCode: ghErr.Response.StatusCode,
	}

	switch ghErr.Response.StatusCode {
	case http.StatusUnauthorized:
		baseErr.Type = ErrorTypeAuth
		baseErr.Message = "Authentication failed. Please check your GitHub token"

		if strings.Contains(strings.ToLower(ghErr.Message), "credentials") {
			baseErr.Message = "Invalid or expired GitHub token. Please update github_token in your configuration or the GITHUB_TOKEN environment variable"
		}

	case http.StatusForbidden:
		if strings.Contains(strings.ToLower(ghErr.Message), "rate limit") {
			baseErr.Type = ErrorTypeRateLimit
			baseErr.Message = "GitHub API rate limit exceeded. Please wait before retrying"
			baseErr.Retryable = true
		} else {
			baseErr.Type = ErrorTypePermission
			baseErr.Message = "Insufficient permissions. Your token may not have the required scopes"

			if strings.Contains(resource, "label") {
				baseErr.Message += ". Managing labels requires push access to the repository"
			}
		}

	case http.StatusTooManyRequests:
		baseErr.Type = ErrorTypeRateLimit
		baseErr.Message = "GitHub API rate limit exceeded. Please wait before retrying"
		baseErr.Retryable = true

	case http.StatusNotFound:
		baseErr.Type = ErrorTypeNotFound

		switch {
		case strings.Contains(resource, "label"):
			baseErr.Message = "Label not found"
		case strings.Contains(resource, "repository"):
			baseErr.Message = "Repository not found. Check the repository name and your access permissions"
		case strings.Contains(resource, "organization"):
			baseErr.Message = "Organization not found. Please verify the organization name"
		default:
			baseErr.Message = "Resource not found"
		}

	case http.StatusConflict:
		baseErr.Type = ErrorTypeConflict
		baseErr.Message = "Resource conflict occurred"

		if strings.Contains(ghErr.Message, "already exists") {
			baseErr.Message = "Resource already exists with the same name"
		}

	case http.StatusUnprocessableEntity:
		// Creating a label that exists is reported as a validation
		// failure with the already_exists code.
		for _, e := range ghErr.Errors {
			if e.Code == "already_exists" {
				baseErr.Type = ErrorTypeConflict
				baseErr.Field = e.Field
				baseErr.Code = e.Code
				baseErr.Message = "Resource already exists with the same name"
				return baseErr
			}
		}

		baseErr.Type = ErrorTypeValidation
		baseErr.Message = "Validation failed"

		if len(ghErr.Errors) > 0 {
			var validationErrors []string
			for _, err := range ghErr.Errors {
				if err.Field != "" {
					validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", err.Field, describeValidation(err)))
					if baseErr.Field == "" {
						baseErr.Field = err.Field
						baseErr.Code = err.Code
					}
				} else {
					validationErrors = append(validationErrors, describeValidation(err))
				}
			}
			baseErr.Message = fmt.Sprintf("Validation failed: %s", strings.Join(validationErrors, "; "))
		}

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		baseErr.Type = ErrorTypeNetwork
		baseErr.Message = "GitHub API is temporarily unavailable. Please try again later"
		baseErr.Retryable = true

	default:
		baseErr.Type = ErrorTypeUnknown
		baseErr.Message = ghErr.Message
		baseErr.Retryable = ghErr.Response.StatusCode >= 500
	}

	return baseErr
}

func describeValidation(e github.Error) string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// isNetworkError checks if an error is a network-related error
func isNetworkError(err error) bool {
	errStr := strings.ToLower(err.Error())
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"network is unreachable",
		"no such host",
		"timeout",
		"dial tcp",
		"i/o timeout",
		"eof",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isRetryableErrorType determines if an error type is generally retryable
func isRetryableErrorType(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRateLimit, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// MissingFieldError reports a listing record without a required field.
type MissingFieldError struct {
	Field  string
	Record string
}

// Error implements the error interface
func (e *MissingFieldError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("repository record %s is missing required field %q", e.Record, e.Field)
	}
	return fmt.Sprintf("repository record is missing required field %q", e.Field)
}

// EnumerationError reports that repository enumeration stopped early. The
// repositories collected before the failure are still returned alongside it.
type EnumerationError struct {
	Scope Scope
	Page  int
	Cause error
}

// Error implements the error interface
func (e *EnumerationError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("listing repositories for %s stopped at page %d: %v", e.Scope, e.Page, e.Cause)
	}
	return fmt.Sprintf("listing repositories for %s failed: %v", e.Scope, e.Cause)
}

// Unwrap returns the underlying error
func (e *EnumerationError) Unwrap() error {
	return e.Cause
}

// RetryConfig defines configuration for retry logic
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Jitter is the fraction of each delay that is randomized.
	Jitter float64
	// MaxResetWait bounds how long a primary rate limit reset is waited for.
	MaxResetWait time.Duration
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.2,
		MaxResetWait:  5 * time.Minute,
	}
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func() error

// WithRetry executes an operation, retrying retryable *Error failures with
// jittered exponential backoff. Waiting stops early when ctx is done.
func WithRetry(ctx context.Context, operation RetryableOperation, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := retryDelay(lastErr, delay, config)
			if err := sleep(ctx, wait); err != nil {
				return fmt.Errorf("retry aborted: %w (last error: %v)", err, lastErr)
			}

			delay = time.Duration(float64(delay) * config.BackoffFactor)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		var ghErr *Error
		if !errors.As(err, &ghErr) || !ghErr.IsRetryable() {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", config.MaxRetries, lastErr)
}

// retryDelay picks the wait before the next attempt: the server-provided
// Retry-After or rate limit reset when available, otherwise the jittered
// backoff delay.
func retryDelay(lastErr error, delay time.Duration, config *RetryConfig) time.Duration {
	var ghErr *Error
	if errors.As(lastErr, &ghErr) && ghErr.Type == ErrorTypeRateLimit {
		if ghErr.RetryAfter > 0 {
			return ghErr.RetryAfter
		}

		var rateErr *github.RateLimitError
		if errors.As(ghErr.Cause, &rateErr) {
			waitTime := time.Until(rateErr.Rate.Reset.Time)
			if waitTime > 0 && waitTime < config.MaxResetWait {
				return waitTime
			}
		}
	}

	return withJitter(delay, config.Jitter)
}

func withJitter(delay time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || delay <= 0 {
		return delay
	}
	spread := float64(delay) * jitter
	return delay + time.Duration(spread*(2*rand.Float64()-1))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
