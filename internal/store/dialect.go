package store

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect covers the differences between the SQL backends the report store
// runs on. Queries are written with ? placeholders and rebound per dialect.
type dialect struct {
	name      string
	numbered  bool // $1, $2 instead of ?
	jsonType  string
	timestamp string
}

var dialects = map[string]dialect{
	"postgres": {name: "postgres", numbered: true, jsonType: "JSONB", timestamp: "TIMESTAMPTZ"},
	"sqlite":   {name: "sqlite", jsonType: "TEXT", timestamp: "TIMESTAMP"},
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "pgx":
		return dialects["postgres"], nil
	case "sqlite", "sqlite3":
		return dialects["sqlite"], nil
	}
	return dialect{}, fmt.Errorf("%w: unsupported driver %q", ErrStoreConfig, driver)
}

// rebind rewrites ? placeholders into the dialect's form.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
