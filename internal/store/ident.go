package store

import "strings"

// RowIDColumn is the implicit SQLite row identifier.
const RowIDColumn = "rowid"

// QuoteIdent renders name as a double-quoted SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral renders s as a single-quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// columnRef renders a column reference. The implicit rowid is left bare so it
// never collides with the double-quoted-string-literal fallback SQLite applies
// to unknown quoted identifiers.
func columnRef(name string) string {
	if strings.EqualFold(name, RowIDColumn) {
		return RowIDColumn
	}
	return QuoteIdent(name)
}

// IsInternalTable reports whether table belongs to the store itself or to
// SQLite/goose bookkeeping and must never be mutated or instrumented.
func IsInternalTable(table string) bool {
	t := strings.ToLower(table)
	return strings.HasPrefix(t, "history_") ||
		strings.HasPrefix(t, "sqlite_") ||
		strings.HasPrefix(t, "goose_")
}
