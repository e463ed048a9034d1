package directory

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("directory: unknown driver")

// Directory checks account existence.
type Directory interface {
	AccountExists(ctx context.Context, identity string) (bool, error)
}

// APIError represents an unexpected response from the account service.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("account service error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
