package adapter

import (
	"errors"
	"fmt"
)

var (
	ErrRemote       = errors.New("remote store error")
	ErrRetryable    = errors.New("retryable")
	ErrNonRetryable = errors.New("non-retryable")

	ErrUnknownDriver = errors.New("unknown remote driver")
	ErrInvalidQuery  = errors.New("invalid remote query")
	ErrMissingID     = errors.New("row without identity")
	ErrDuplicateID   = errors.New("duplicate identity")
	ErrUnavailable   = errors.New("remote store unavailable")
)

// IsRetryable reports whether err is a remote failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

func retryable(op string, err error) error {
	return fmt.Errorf("%w: %w: %s: %w", ErrRemote, ErrRetryable, op, err)
}

func nonRetryable(op string, err error) error {
	return fmt.Errorf("%w: %w: %s: %w", ErrRemote, ErrNonRetryable, op, err)
}
