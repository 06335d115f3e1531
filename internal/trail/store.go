package trail

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store format version tracking:
// 1 - Initial format (fields, trails, lexicon, events, event_items)
const formatVersion = 1

// Errors returned by Open and the read API.
var (
	ErrNotFound           = errors.New("trail store not found")
	ErrUnsupportedVersion = errors.New("unsupported trail store format version")
	ErrCorrupt            = errors.New("corrupt trail store")
	ErrTrailNotFound      = errors.New("trail not found")
)

// Item references one field value of an event. Value 0 is the empty value.
type Item struct {
	Field int
	Value uint32
}

// Event is one timestamped record of a trail. Items holds exactly one item
// per catalog field, in catalog order.
type Event struct {
	Timestamp uint64
	Items     []Item
}

// Store is an open, read-only trail store.
// Everything except events is loaded at Open and never changes afterwards.
type Store struct {
	db        *sql.DB
	fields    []string
	uuids     []uuid.UUID
	ordinals  map[uuid.UUID]uint64
	lexicon   [][][]byte // [field][value_id]; index 0 is the empty value
	numEvents uint64
}

// Open opens an existing trail store at the given path.
// The store is never created here; use NewConstructor to write one.
//
// The connection is configured with:
//   - mode=ro so the file cannot be modified through this handle
//   - query_only as a second guard against writes
//   - 5-second busy timeout for lock contention with a concurrent writer
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat trail store: %w", err)
	}

	db, err := sql.Open("sqlite3", readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open trail store: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to trail store: %w", err)
	}

	// Pragmas below are per connection, so keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, readerPragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.load(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
// Calling Close more than once is safe.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// NumTrails returns the number of trails in the store.
func (s *Store) NumTrails() uint64 {
	return uint64(len(s.uuids))
}

// NumEvents returns the number of events across all trails.
func (s *Store) NumEvents() uint64 {
	return s.numEvents
}

// NumFields returns the size of the field catalog.
func (s *Store) NumFields() int {
	return len(s.fields)
}

// Fields returns a copy of the field catalog in catalog order.
func (s *Store) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldName returns the name of the field at catalog position i.
func (s *Store) FieldName(i int) (string, error) {
	if i < 0 || i >= len(s.fields) {
		return "", fmt.Errorf("field %d out of range [0, %d)", i, len(s.fields))
	}
	return s.fields[i], nil
}

// UUID returns the identifier of the trail at the given ordinal.
func (s *Store) UUID(ordinal uint64) (uuid.UUID, error) {
	if ordinal >= uint64(len(s.uuids)) {
		return uuid.Nil, fmt.Errorf("%w: ordinal %d", ErrTrailNotFound, ordinal)
	}
	return s.uuids[ordinal], nil
}

// TrailID returns the ordinal of the trail with the given identifier.
func (s *Store) TrailID(id uuid.UUID) (uint64, error) {
	ordinal, ok := s.ordinals[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTrailNotFound, id)
	}
	return ordinal, nil
}

// ItemValue resolves an item to its value bytes. The result is
// length-delimited and may contain zero bytes; callers must not modify it.
// Unknown items resolve to the empty value.
func (s *Store) ItemValue(item Item) []byte {
	if item.Value == 0 || item.Field < 0 || item.Field >= len(s.lexicon) {
		return nil
	}
	values := s.lexicon[item.Field]
	if int(item.Value) >= len(values) {
		return nil
	}
	return values[item.Value]
}

// load reads the catalog, trail identifiers, lexicon and event count.
func (s *Store) load(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version != formatVersion {
		return fmt.Errorf("%w: %d (want %d)", ErrUnsupportedVersion, version, formatVersion)
	}

	if err := s.loadFields(ctx); err != nil {
		return err
	}
	if err := s.loadTrails(ctx); err != nil {
		return err
	}
	if err := s.loadLexicon(ctx); err != nil {
		return err
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	s.numEvents = uint64(n)

	return nil
}

func (s *Store) loadFields(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM fields ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	fields := []string{}
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scan field: %w", err)
		}
		if id != len(fields) {
			return fmt.Errorf("%w: field ids not contiguous at %d", ErrCorrupt, id)
		}
		fields = append(fields, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate fields: %w", err)
	}

	s.fields = fields
	return nil
}

func (s *Store) loadTrails(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT ordinal, uuid FROM trails ORDER BY ordinal ASC`)
	if err != nil {
		return fmt.Errorf("query trails: %w", err)
	}
	defer rows.Close()

	var uuids []uuid.UUID
	ordinals := make(map[uuid.UUID]uint64)
	for rows.Next() {
		var ordinal int64
		var raw []byte
		if err := rows.Scan(&ordinal, &raw); err != nil {
			return fmt.Errorf("scan trail: %w", err)
		}
		if ordinal != int64(len(uuids)) {
			return fmt.Errorf("%w: trail ordinals not contiguous at %d", ErrCorrupt, ordinal)
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return fmt.Errorf("%w: trail %d: %v", ErrCorrupt, ordinal, err)
		}
		ordinals[id] = uint64(ordinal)
		uuids = append(uuids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate trails: %w", err)
	}

	s.uuids = uuids
	s.ordinals = ordinals
	return nil
}

func (s *Store) loadLexicon(ctx context.Context) error {
	lexicon := make([][][]byte, len(s.fields))
	for i := range lexicon {
		lexicon[i] = [][]byte{nil}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT field_id, value_id, value
		FROM lexicon
		ORDER BY field_id ASC, value_id ASC
	`)
	if err != nil {
		return fmt.Errorf("query lexicon: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var field int
		var valueID int64
		var value []byte
		if err := rows.Scan(&field, &valueID, &value); err != nil {
			return fmt.Errorf("scan lexicon: %w", err)
		}
		if field < 0 || field >= len(lexicon) {
			return fmt.Errorf("%w: lexicon references unknown field %d", ErrCorrupt, field)
		}
		if valueID != int64(len(lexicon[field])) {
			return fmt.Errorf("%w: lexicon ids not contiguous for field %d", ErrCorrupt, field)
		}
		lexicon[field] = append(lexicon[field], value)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate lexicon: %w", err)
	}

	s.lexicon = lexicon
	return nil
}

// readOnlyDSN builds a URI filename that opens the store read-only.
func readOnlyDSN(path string) string {
	return "file:" + filepath.ToSlash(path) + "?mode=ro"
}

var (
	readerPragmas = []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA query_only = ON",
	}
	writerPragmas = []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
)

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB, pragmas []string) error {
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
