package mqtt

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/solar-poller/internal/reading"
)

// Status values and reasons published on the status topic.
const (
	statusOnline  = "online"
	statusOffline = "offline"

	reasonShutdown = "shutdown"
	reasonLost     = "connection_lost"
)

type powerMessage struct {
	PowerWatts int    `json:"power_watts"`
	Timestamp  string `json:"timestamp"`
}

type statusMessage struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// buildPowerPayload encodes r with an RFC 3339 UTC timestamp.
func buildPowerPayload(r reading.Reading) ([]byte, error) {
	return json.Marshal(powerMessage{
		PowerWatts: r.PowerWatts,
		Timestamp:  r.Time.UTC().Format(time.RFC3339),
	})
}

// statusPayload encodes a status message stamped with the current time.
func statusPayload(clientID, status, reason string) []byte {
	// A struct of strings always marshals.
	data, _ := json.Marshal(statusMessage{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return data
}
