// Package mqtt mirrors power readings to an MQTT broker.
//
// # Topics
//
//	<prefix>/inverter/power   {"power_watts":532,"timestamp":"2026-06-01T12:00:00Z"} (retained)
//	<prefix>/system/status    {"status":"online",...} / will {"status":"offline","reason":"connection_lost",...} (retained)
//
// The prefix defaults to "solarpoller".
//
// Publishing never blocks the caller on the broker. Readings that arrive
// while the connection is down are dropped, since only the latest retained
// value matters, and paho reconnects in the background.
//
// # Usage
//
//	mirror, err := mqtt.Open(cfg.MQTT, log)
//	if err != nil {
//	    return err
//	}
//	defer mirror.Close()
//
//	loop.AddSink(mirror)
package mqtt
