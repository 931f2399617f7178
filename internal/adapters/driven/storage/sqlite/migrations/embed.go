// Package migrations embeds the schema applied to each store's index.db.
// Up files run in name order and record their version in
// schema_migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
