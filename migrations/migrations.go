// Package migrations embeds the SQL schema files applied at startup.
package migrations

import "embed"

// FS holds every .sql migration in lexical (and therefore version) order.
//
//go:embed *.sql
var FS embed.FS
