// Package migrations содержит goose-миграции notification (inbox для идемпотентности).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
