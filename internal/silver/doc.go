// Package silver cleans the bronze tables.
//
// Values are trimmed, empty values become NULL, rows without any value and
// duplicated rows are dropped. Every run also writes the _reconciliation
// table, which tells how many rows each table lost on the way.
package silver
