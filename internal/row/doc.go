// Package row provides the table-agnostic row representation shared by the
// store, history and engine packages.
//
// A Row is a plain map from column name to a SQLite scalar: nil, int64,
// float64, string, []byte or bool. Values coming from callers (JSON, YAML,
// Go literals) are normalised into that set before they reach a statement.
//
// Key design constraints:
//   - Rows never carry nested values; SQLite columns are scalar
//   - Canonical JSON output sorts keys by UTF-16 code units so traces and
//     golden files are byte-stable across runs
//   - Strings are NFC normalised only at the serialisation boundary, never
//     before they are written to the store
package row
