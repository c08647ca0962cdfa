// Package schedule computes drift-compensated sleeps against a fixed start instant.
//
// Every sleep lasts period − (elapsed mod period), where elapsed is measured
// from a reference start captured once at process start. Work done inside a
// cycle therefore shortens the following sleep instead of pushing later
// cycles back, and the long-run cadence stays at exactly one period.
//
// Two schedules normally share one start: the 180 s sampling schedule of
// the poll loop and the 900 s offline back-off of the inverter reader.
//
// # Usage
//
//	start := clock.Now()
//	sampling := schedule.New(clock, start, 180*time.Second)
//	for {
//	    doWork()
//	    if err := sampling.Wait(ctx); err != nil {
//	        return err // context cancelled
//	    }
//	}
package schedule
