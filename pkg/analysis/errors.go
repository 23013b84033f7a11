package analysis

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrAuthRequired is returned when no bearer token is available. The
// request is failed before any network call is made.
var ErrAuthRequired = eris.New("analysis: authentication required")

// ErrNoResult is returned when a stream reaches end-of-input without ever
// carrying a result event. Analyze never resolves with a partial result.
var ErrNoResult = eris.New("analysis: stream ended without a result")

// APIError is returned when the analysis service responds with a non-2xx
// status. The body is surfaced verbatim; retrying is a caller policy.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analysis: HTTP %d: %s", e.StatusCode, e.Body)
}
