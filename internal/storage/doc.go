// Package storage is the gateway to the readings table.
//
// The Gateway owns exactly one database connection. Connect replaces it
// wholesale; InsertReading never returns an error, it logs the fault and
// reports false. Deciding when to reconnect is left to the caller: the
// Gateway never heals itself.
package storage
