// Package migrations embeds the versioned schema files shipped with the
// binaries, so the migrate command works without a checkout on disk.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
