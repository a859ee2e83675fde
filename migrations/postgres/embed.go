// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contiene las migraciones del schema de licencias.
// Formato: {version}_{name}.sql
//
//go:embed *.sql
var FS embed.FS
