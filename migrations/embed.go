// Package migrations embeds the readings schema for each supported SQL dialect.
//
// Files are forward-only and named YYYYMMDD_HHMMSS_description.up.sql.
// Each file holds a single statement so it runs unchanged on MySQL,
// which rejects multi-statement exec by default.
package migrations

import (
	"embed"

	"github.com/nerrad567/solar-poller/internal/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql mysql/*.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
}
