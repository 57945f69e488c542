package hibp

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAPIKeyNotSet is returned by CheckEmail when the client was constructed
// without a provider API key. The password check never needs one.
var ErrAPIKeyNotSet = errors.New("breach provider API key not configured")

// ErrRateLimited matches (via errors.Is) any StatusError carrying a 429.
// The keyed email endpoint throttles aggressively; callers should back off
// and retry rather than treat this as a provider outage.
var ErrRateLimited = errors.New("breach provider rate limit exceeded")

// StatusError represents an unexpected HTTP status from the breach provider.
// 404 is a normal outcome for both endpoints and never produces one.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("breach provider %s endpoint returned status %d", e.Endpoint, e.StatusCode)
}

// Is implements errors.Is for sentinel matching.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}
