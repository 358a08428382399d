// Package migrations embeds the SQL schema so the binary does not depend on
// the working directory at startup.
package migrations

import "embed"

// FS holds the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS
