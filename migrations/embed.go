// Package migrations embeds SQL migration files into the binary.
//
// This lets LockerRoom apply its schema without shipping SQL files
// alongside the executable - they're compiled in.
package migrations

import (
	"embed"

	"github.com/lockerroom/lockerroom-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded migrations with the database package.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
