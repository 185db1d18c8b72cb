// Package migrations carries the Postgres schema so binaries can apply it
// without the source tree.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
