// Package poller drives the sample-and-store cycle.
//
// The Loop is a two-state machine:
//
//	POLLING ──insert fails──▶ RECOVERING ──Connect called──▶ POLLING
//
// Each cycle fetches one reading, stamps it with the current UTC time,
// stores it, forwards it to any mirror sinks, and then sleeps until the
// next boundary of the sampling schedule. Unreadable cycles are logged and
// skipped without touching the database.
//
// Recovery does not verify the new connection. If it is still broken the
// next insert fails and the cycle repeats.
package poller
