package cli

import "errors"

var errRestoreIncomplete = errors.New("restore finished with errors")
