// Package sqlmodule installs the traildb virtual table module into the
// pure-Go SQLite engine (modernc.org/sqlite).
//
// Register creates the module and the host database it lives on. A Session
// then accepts
//
//	CREATE VIRTUAL TABLE events USING traildb('path/to/store.tdb');
//
// through Attach, and SELECTs against events scan the trail store one event
// per row. Tables are read-only: writes are rejected by the engine.
package sqlmodule
