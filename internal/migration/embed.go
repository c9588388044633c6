package migration

import "embed"

const migrationsDir = "migrations"

// The payment observation and notification event schema ships inside the
// binary; deployments only need the sqlite file path.
//
//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS
