package auth

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// Migrations returns the migrations root, holding one directory per
// dialect: postgres and sqlite.
func Migrations() (fs.FS, error) {
	return fs.Sub(migrationsFS, "data/sql/migrations")
}
