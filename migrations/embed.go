// Package migrations embeds the SQL schema applied by cmd/migrate and at
// server start-up.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
