// Package migrations embeds the schema files applied by deploy tooling and
// the integration test harness.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
