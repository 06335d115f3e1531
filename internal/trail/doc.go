// Package trail provides SQLite-backed storage for trail stores.
//
// A trail store is an append-only, per-entity event log:
//   - Trails: entities identified by a 128-bit UUID, addressed by ordinal
//   - Events: timestamped records within a trail, ordered by timestamp
//   - Field catalog: the store-wide ordered list of field names
//   - Lexicon: per-field value dictionary; events reference values by id
//
// A store is written exactly once by a Constructor and is read-only after
// Finalize. Open loads the catalog, the trail identifiers and the lexicon
// into memory, so a Store is immutable and safe to share between any number
// of Cursors. Each Cursor decodes one trail at a time.
//
// # Ordering
//
//   - Trails keep the order in which the Constructor first saw them.
//   - Events are sorted by timestamp within a trail (stable for ties).
//   - Timestamps are only ordered inside a trail, never across trails.
//
// # Database Configuration
//
//   - Writer: journal_mode=DELETE, synchronous=NORMAL, foreign_keys=ON
//   - Reader: opened with mode=ro, query_only=ON, busy_timeout=5000
//   - PRAGMA user_version carries the store format version
package trail
