// Package influxdb mirrors power readings into InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. The relational
// table stays the system of record; this mirror is optional and
// fire-and-forget.
//
// # Series
//
//	inverter_power,device_id=<device_id> power_watts=<watts>i <reading time>
//
// # Usage
//
//	mirror, err := influxdb.Open(ctx, cfg.InfluxDB, log)
//	if err != nil {
//	    return err
//	}
//	defer mirror.Close()
//
//	loop.AddSink(mirror)
//
// # Thread Safety
//
// All methods are safe for concurrent use. PublishReading only queues the
// point. Batches are sent by the library's writer goroutine, and rejected
// batches are logged and counted rather than returned.
package influxdb
