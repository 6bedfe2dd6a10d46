// Package migrations carries the storage schemas and applies them on startup.
package migrations

import "embed"

// PostgresFS holds the zone schema.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the clean trip schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
