// Package migrations embeds the SQL schema migrations so that binaries can
// migrate without shipping the files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

//Personal.AI order the ending
