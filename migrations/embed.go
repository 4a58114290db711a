// Package migrations holds the versioned PostgreSQL schema applied by
// cmd/migrate. Files follow golang-migrate naming: NNNNNN_name.{up,down}.sql.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
