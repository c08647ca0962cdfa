// Package inverter reads the current power output from a solar inverter's
// embedded status web page.
//
// The status page is protected by HTTP basic auth and carries the reading in
// an inline script variable:
//
//	var webdata_now_p = "532";
//
// FetchPower absorbs every network fault. Transient faults are retried a
// bounded number of times per call; an unreachable inverter (connection
// refused, timeout) puts the reader into an offline wait that re-tries the
// login page on a fixed back-off schedule until the inverter answers again.
// This covers the inverter switching itself off overnight.
//
// # Usage
//
//	offline := schedule.New(clock, start, 15*time.Minute)
//	reader := inverter.New(inverter.Config{...}, offline)
//	reader.SetLogger(log)
//
//	watts, ok, err := reader.FetchPower(ctx)
//	if err != nil {
//	    return err // ctx cancelled
//	}
//	if !ok {
//	    // unreadable this cycle
//	}
package inverter
