package mqtt

import "errors"

var (
	// ErrDisabled is returned by Open when mqtt.enabled is false.
	ErrDisabled = errors.New("mqtt: mirror disabled")

	// ErrRefused wraps a broker that answered the connect with an error.
	ErrRefused = errors.New("mqtt: connection refused")

	// ErrNotConnected is returned when a reading arrives while the broker is down.
	ErrNotConnected = errors.New("mqtt: broker connection down")

	// ErrClosed is returned when publishing through a closed Mirror.
	ErrClosed = errors.New("mqtt: mirror closed")
)
