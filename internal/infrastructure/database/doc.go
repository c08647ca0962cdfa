// Package database provides SQL connectivity for the readings store.
//
// This package manages:
//   - Driver selection (mysql, postgres via pgx, sqlite3) and DSN building
//   - Placeholder rebinding so queries are written once with ?
//   - Schema migrations, one embedded directory per dialect
//   - A single-connection handle; a broken connection is replaced by reopening
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Name() never includes credentials, so it is safe to log
//   - The sqlite file is chmod 0600
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Driver: "mysql", Host: "db", ...})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Migrations are additive-only and forward-only. Files are named
// YYYYMMDD_HHMMSS_description.up.sql and live under sqlite/, postgres/
// and mysql/ in the migrations package.
package database
