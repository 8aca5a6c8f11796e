package database

import _ "embed"

// Schema is the current schema as produced by running every migration.
// Tests apply it directly instead of migrating.
//
// To regenerate after adding a migration:
//
//	go generate ./internal/database
//
//go:embed schema.sql
var Schema string

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
