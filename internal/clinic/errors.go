package clinic

import (
	"errors"
	"fmt"
)

// Error kinds reported by the clinic management API. Callers branch on these
// with errors.Is; the concrete HTTP status codes stay inside this package.
var (
	// ErrNotAuthorized means the clinic session token is missing, expired or
	// revoked. The portal must send the user back through sign-in.
	ErrNotAuthorized = errors.New("clinic: not authorized")

	// ErrNotFound means the record no longer exists on the clinic side.
	ErrNotFound = errors.New("clinic: record not found")

	// ErrConflict means the requested employee/time slot overlaps an existing
	// appointment. The action is retryable with a different time.
	ErrConflict = errors.New("clinic: time slot conflict")

	// ErrValidation means the clinic rejected the payload as malformed.
	ErrValidation = errors.New("clinic: invalid request")

	// ErrUnavailable covers transport failures, timeouts and 5xx responses.
	// Transient; the user may simply retry.
	ErrUnavailable = errors.New("clinic: service unavailable")
)

// apiMessage is the error envelope the clinic API returns alongside non-2xx
// status codes.
type apiMessage struct {
	Message string `json:"message"`
}

// kindForStatus maps an HTTP status code to the matching error kind.
func kindForStatus(code int) error {
	switch {
	case code == 401 || code == 403:
		return ErrNotAuthorized
	case code == 404:
		return ErrNotFound
	case code == 409:
		return ErrConflict
	case code == 400 || code == 422:
		return ErrValidation
	default:
		return ErrUnavailable
	}
}

func statusError(code int, message string) error {
	kind := kindForStatus(code)
	if message == "" {
		return fmt.Errorf("%w (HTTP %d)", kind, code)
	}
	return fmt.Errorf("%w (HTTP %d): %s", kind, code, message)
}
