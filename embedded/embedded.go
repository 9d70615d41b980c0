package embedded

import _ "embed"

// Database migrations.

// DBMigration1x0 creates the catalog tables.
//
//go:embed sql/1x0.sql
var DBMigration1x0 string

// DBMigration1x1 adds the match history.
//
//go:embed sql/1x1.sql
var DBMigration1x1 string
