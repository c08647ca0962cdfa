package influxdb

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/solar-poller/internal/reading"
)

// Measurement and field names of the mirrored series.
const (
	measurementPower = "inverter_power"
	fieldPowerWatts  = "power_watts"
	tagDeviceID      = "device_id"
)

// PublishReading queues r for the next batch. Delivery failures are
// logged by the Mirror later; the only synchronous error is ErrClosed.
func (m *Mirror) PublishReading(_ context.Context, r reading.Reading) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.writes.WritePoint(newPowerPoint(m.deviceID, r))
	return nil
}

// newPowerPoint builds the point for one reading, stamped with the
// reading's own time rather than the write time.
func newPowerPoint(deviceID string, r reading.Reading) *write.Point {
	return write.NewPoint(
		measurementPower,
		map[string]string{
			tagDeviceID: deviceID,
		},
		map[string]interface{}{
			fieldPowerWatts: r.PowerWatts,
		},
		r.Time,
	)
}
