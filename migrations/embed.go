// Package migrations bundles the SQL schema applied by golang-migrate
// (files are ordered by their numeric prefix: 000001, 000002, ...).
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
