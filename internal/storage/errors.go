package storage

import "errors"

// ErrNotConnected is reported when an insert is attempted without a live connection.
var ErrNotConnected = errors.New("storage: not connected to database")
