// Package migrations holds the run-history schema, embedded so the server
// binary can migrate without a migrations directory on disk.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
