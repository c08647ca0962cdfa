package influxdb

import "errors"

var (
	// ErrDisabled is returned by Open when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: mirror disabled")

	// ErrUnreachable wraps a failed ping during Open.
	ErrUnreachable = errors.New("influxdb: server unreachable")

	// ErrClosed is returned when publishing through a closed Mirror.
	ErrClosed = errors.New("influxdb: mirror closed")
)
