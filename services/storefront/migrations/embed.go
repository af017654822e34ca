// Package migrations содержит goose-миграции storefront, встроенные в бинарник.
package migrations

import "embed"

// FS миграции для goose.SetBaseFS / goose.NewProvider
//
//go:embed *.sql
var FS embed.FS
