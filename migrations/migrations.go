// Package migrations embeds the SQL schema migrations applied at startup
// in development and via the admin CLI in production.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
