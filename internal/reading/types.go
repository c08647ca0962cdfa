// Package reading defines the power sample produced by one poll cycle.
package reading

import "time"

// Reading is one power sample taken from the inverter.
// A cycle whose power could not be read produces no Reading at all.
type Reading struct {
	// PowerWatts is the instantaneous output reported by the inverter.
	PowerWatts int

	// Time is when the sample was taken, always UTC.
	Time time.Time
}

// New returns a Reading with the timestamp normalised to UTC.
func New(powerWatts int, at time.Time) Reading {
	return Reading{PowerWatts: powerWatts, Time: at.UTC()}
}
