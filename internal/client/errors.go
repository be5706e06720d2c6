package client

import "errors"

// ErrMigrationUnsupported is returned by [App.Migrate] when the configured
// remote driver does not own a schema.
var ErrMigrationUnsupported = errors.New("remote driver does not support migrations")
