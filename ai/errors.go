package ai

import "errors"

// Classified distillation failures. Implementations wrap the provider's
// original message around one of these sentinels so callers can both
// branch on the class and surface the message verbatim.
var (
	// ErrAuthentication indicates the provider rejected the credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidResponse indicates the provider returned an unusable response.
	ErrInvalidResponse = errors.New("invalid model response")

	// ErrEmptyInput indicates there was no text to distill.
	ErrEmptyInput = errors.New("empty input text")
)
