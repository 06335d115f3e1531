// Package trailvtab adapts a trail store to a pull-based virtual table.
//
// The adapter flattens "trail → event" iteration into a single row stream
// with the shape
//
//	uuid TEXT, timestamp INTEGER, <field 0>, …, <field F-1>
//
// and follows the open/filter/next/eof/column/rowid/close contract that
// relational engines use for pluggable tables. The package does not depend
// on a particular engine; see package sqlmodule for the SQLite binding.
//
// # Lifecycle
//
//   - Connect opens the store, reads the field catalog once and declares the
//     schema. Any failure after the store is open closes it before returning.
//   - A Table owns its store exclusively and is read-only after Connect, so
//     any number of Cursors may be open against it at once.
//   - Each Cursor owns an independent store cursor. Cursors must be closed
//     before the Table is disconnected.
//
// # Limitations
//
// Every query is a full scan. Filter accepts constraint arguments for
// interface conformance but never uses them. The table is read-only.
package trailvtab
