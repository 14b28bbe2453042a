package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var migrationFS embed.FS

// FS exposes the embedded SQL for external runners.
var FS = migrationFS

// Migrations is a bun/migrate registry creating the nonce store schema.
var Migrations = migrate.NewMigrations()

func init() {
	_ = Migrations.Discover(migrationFS)
}

// UpStatements returns the statements of every up migration in version order.
// It serves callers that apply the schema without bun, such as store tests.
func UpStatements() ([]string, error) {
	names, err := fs.Glob(migrationFS, "*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	var out []string
	for _, name := range names {
		b, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		for _, stmt := range strings.Split(string(b), "--bun:split") {
			if s := strings.TrimSpace(stmt); s != "" {
				out = append(out, s)
			}
		}
	}
	return out, nil
}
