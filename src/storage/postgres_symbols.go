package storage

import (
	"fmt"
	"regexp"
	"strings"
)

// Watch-list entries of the form schema.table.field pull their symbols from
// an existing postgres column instead of naming one asset.

var symbolRefRegex = regexp.MustCompile(`^(\w+)\.(\w+)\.(\w+)$`)

// SymbolReference points at a column holding asset symbols.
type SymbolReference struct {
	Schema string
	Table  string
	Field  string
}

// ParseSymbolReference reports whether entry is a schema.table.field reference.
func ParseSymbolReference(entry string) (SymbolReference, bool) {
	matches := symbolRefRegex.FindStringSubmatch(strings.TrimSpace(entry))
	if len(matches) != 4 {
		return SymbolReference{}, false
	}
	return SymbolReference{Schema: matches[1], Table: matches[2], Field: matches[3]}, true
}

// -----------------------------------------------------------------------------

// ExpandWatchlist replaces references with the symbols they point at and keeps
// plain symbols as they are.
func (d *PostgresStore) ExpandWatchlist(entries []string) ([]string, error) {
	var symbols []string

	for _, entry := range entries {
		ref, ok := ParseSymbolReference(entry)
		if !ok {
			symbols = append(symbols, entry)
			continue
		}

		loaded, err := d.GetSymbolsFromTable(ref.Schema, ref.Table, ref.Field)
		if err != nil {
			return symbols, fmt.Errorf("failed to load symbols from %s: %w", entry, err)
		}
		symbols = append(symbols, loaded...)
	}

	return symbols, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresStore) GetSymbolsFromTable(schema, table, field string) ([]string, error) {
	// Identifiers are \w+ and quoted
	query := fmt.Sprintf(`SELECT "%s" FROM "%s"."%s"`, field, schema, table)

	rows, err := d.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return symbols, nil
}
