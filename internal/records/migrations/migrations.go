// Package migrations embeds the goose SQL migrations for the SQL record
// backends.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
