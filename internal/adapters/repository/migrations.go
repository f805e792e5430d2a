package repository

import (
	"embed"
	"strings"
)

//go:embed migrations/*.sql
var migrations embed.FS

// statements splits the migration for dialect into single statements.
func statements(dialect string) ([]string, error) {
	b, err := migrations.ReadFile("migrations/" + dialect + ".sql")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, stmt := range strings.Split(string(b), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out, nil
}
