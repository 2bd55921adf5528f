// Package engine provides the processing session shared by every stage of a
// pipeline run.
//
// A Session is an in-process SQL engine (SQLite through modernc.org/sqlite)
// pinned to a single connection. Layer directories are attached to it as
// table stores: each store is a tables.db file whose tables are versioned.
// Every write commits a new physical table, repoints the table view at it and
// appends a row to the store catalog, all in one transaction, so readers only
// ever see committed versions and earlier versions stay queryable.
//
// GetOrCreate has singleton semantics: while a session is live it is returned
// to every caller. Stop releases it.
package engine
