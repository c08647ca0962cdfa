package inverter

import (
	"errors"
	"io"
	"strings"
)

// ErrKind classifies a failed request to the inverter.
type ErrKind int

const (
	// KindConnection covers refused connections, DNS failures and timeouts.
	// The inverter is treated as offline.
	KindConnection ErrKind = iota

	// KindHTTPStatus is a response with a status of 400 or above.
	KindHTTPStatus

	// KindMalformed is a response that broke off or could not be decoded
	// (truncated body, bad chunked encoding).
	KindMalformed
)

// String returns the kind name used in log records.
func (k ErrKind) String() string {
	switch k {
	case KindHTTPStatus:
		return "http_status"
	case KindMalformed:
		return "malformed"
	default:
		return "connection"
	}
}

// malformedMarkers are fragments of net/http errors raised while decoding a response.
var malformedMarkers = []string{
	"malformed",
	"chunk length",
	"line too long",
}

// classify maps a transport error to its kind.
// Anything that is not recognisably a broken response is a connection fault.
func classify(err error) ErrKind {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return KindMalformed
	}
	msg := err.Error()
	for _, m := range malformedMarkers {
		if strings.Contains(msg, m) {
			return KindMalformed
		}
	}
	return KindConnection
}
