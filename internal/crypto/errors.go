package crypto

import "errors"

var (
	// ErrEmptyPassphrase is returned when sealing or opening without a
	// passphrase.
	ErrEmptyPassphrase = errors.New("passphrase is required")

	// ErrOpen is returned when an envelope cannot be opened. A wrong
	// passphrase and a corrupted envelope are indistinguishable.
	ErrOpen = errors.New("cannot open sealed content")
)
