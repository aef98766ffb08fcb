// Package migrations holds the SQL schema applied at startup.
package migrations

import "embed"

// FS contains the *.up.sql files, applied in lexical order.
//
//go:embed *.up.sql
var FS embed.FS
