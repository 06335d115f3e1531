package trail

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/unicode/norm"
)

// Errors returned by the Constructor.
var (
	ErrInvalidField = errors.New("invalid field name")
	ErrValueCount   = errors.New("value count does not match field count")
	ErrFinalized    = errors.New("constructor already finalized")
	ErrExists       = errors.New("trail store already exists")
)

// reservedFields are taken by the leading columns of the relational view.
var reservedFields = []string{"uuid", "timestamp"}

// Constructor accumulates trails and events in memory and writes them to a
// new store file on Finalize.
type Constructor struct {
	path    string
	fields  []string
	trails  []*pendingTrail
	byUUID  map[uuid.UUID]*pendingTrail
	values  []map[string]uint32 // [field] value -> value_id
	lexicon [][][]byte          // [field][value_id-1]
	events  int
	done    bool
}

type pendingTrail struct {
	id     uuid.UUID
	events []pendingEvent
}

type pendingEvent struct {
	timestamp uint64
	values    []uint32
}

// NewConstructor validates the field catalog and returns a Constructor that
// will write to path. The file must not exist yet.
//
// Field names must be non-empty, consist of SQL identifier characters, must
// not be one of the reserved names (uuid, timestamp), and must stay unique
// after NFC normalization. Names are stored exactly as given.
func NewConstructor(path string, fields []string) (*Constructor, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	c := &Constructor{
		path:    path,
		fields:  append([]string(nil), fields...),
		byUUID:  make(map[uuid.UUID]*pendingTrail),
		values:  make([]map[string]uint32, len(fields)),
		lexicon: make([][][]byte, len(fields)),
	}
	for i := range c.values {
		c.values[i] = make(map[string]uint32)
	}
	return c, nil
}

// ValidateFields checks a field catalog without creating anything.
func ValidateFields(fields []string) error {
	seen := make(map[string]string, len(fields))
	for i, name := range fields {
		if !isIdentifier(name) {
			return fmt.Errorf("%w: field %d %q", ErrInvalidField, i, name)
		}
		for _, r := range reservedFields {
			if strings.EqualFold(name, r) {
				return fmt.Errorf("%w: %q is reserved", ErrInvalidField, name)
			}
		}
		key := strings.ToLower(norm.NFC.String(name))
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q collides with %q", ErrInvalidField, name, prev)
		}
		seen[key] = name
	}
	return nil
}

// isIdentifier reports whether name can be used as a bare SQLite column name.
// Bytes above 0x7f are accepted verbatim, as SQLite does.
func isIdentifier(name string) bool {
	if name == "" || !utf8.ValidString(name) {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r >= utf8.RuneSelf:
		case r < utf8.RuneSelf && unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '$'):
		default:
			return false
		}
	}
	return true
}

// Fields returns the catalog the constructor was created with.
func (c *Constructor) Fields() []string {
	return append([]string(nil), c.fields...)
}

// AddTrail declares a trail without adding events to it.
// A trail declared this way and never given events is stored empty.
func (c *Constructor) AddTrail(id uuid.UUID) error {
	if c.done {
		return ErrFinalized
	}
	c.trail(id)
	return nil
}

// Add appends an event to the trail identified by id. values must hold one
// entry per catalog field; an empty value is stored as value id 0.
func (c *Constructor) Add(id uuid.UUID, timestamp uint64, values [][]byte) error {
	if c.done {
		return ErrFinalized
	}
	if len(values) != len(c.fields) {
		return fmt.Errorf("%w: got %d, want %d", ErrValueCount, len(values), len(c.fields))
	}

	ev := pendingEvent{timestamp: timestamp, values: make([]uint32, len(values))}
	for f, v := range values {
		ev.values[f] = c.intern(f, v)
	}

	t := c.trail(id)
	t.events = append(t.events, ev)
	c.events++
	return nil
}

func (c *Constructor) trail(id uuid.UUID) *pendingTrail {
	t, ok := c.byUUID[id]
	if !ok {
		t = &pendingTrail{id: id}
		c.byUUID[id] = t
		c.trails = append(c.trails, t)
	}
	return t
}

func (c *Constructor) intern(field int, value []byte) uint32 {
	if len(value) == 0 {
		return 0
	}
	if id, ok := c.values[field][string(value)]; ok {
		return id
	}
	c.lexicon[field] = append(c.lexicon[field], append([]byte(nil), value...))
	id := uint32(len(c.lexicon[field]))
	c.values[field][string(value)] = id
	return id
}

// Abort discards everything added so far. The file is never created.
func (c *Constructor) Abort() {
	c.done = true
	c.trails = nil
	c.byUUID = nil
}

// Finalize sorts events by timestamp within each trail and writes the store
// in a single transaction. On failure the partially written file is removed.
func (c *Constructor) Finalize(ctx context.Context) (err error) {
	if c.done {
		return ErrFinalized
	}
	c.done = true

	for _, t := range c.trails {
		sort.SliceStable(t.events, func(i, j int) bool {
			return t.events[i].timestamp < t.events[j].timestamp
		})
	}

	db, err := sql.Open("sqlite3", c.path)
	if err != nil {
		return fmt.Errorf("failed to create trail store: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close trail store: %w", cerr)
		}
		if err != nil {
			if rerr := os.Remove(c.path); rerr != nil && !os.IsNotExist(rerr) {
				err = multierror.Append(err, fmt.Errorf("remove partial store: %w", rerr))
			}
		}
	}()

	db.SetMaxOpenConns(1)
	if err := applyPragmas(db, writerPragmas); err != nil {
		return fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := c.write(ctx, db); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", formatVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	log.Printf("[DEBUG] wrote trail store %s: %d trails, %d events, %d fields",
		c.path, len(c.trails), c.events, len(c.fields))
	return nil
}

// write inserts the catalog, lexicon, trails and events.
func (c *Constructor) write(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write store: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for i, name := range c.fields {
		if _, err := tx.ExecContext(ctx, `INSERT INTO fields (id, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("write field %q: %w", name, err)
		}
	}

	lexStmt, err := tx.PrepareContext(ctx, `INSERT INTO lexicon (field_id, value_id, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare lexicon: %w", err)
	}
	defer lexStmt.Close()
	for f, values := range c.lexicon {
		for i, v := range values {
			if _, err := lexStmt.ExecContext(ctx, f, i+1, v); err != nil {
				return fmt.Errorf("write lexicon: %w", err)
			}
		}
	}

	evStmt, err := tx.PrepareContext(ctx, `INSERT INTO events (trail, seq, timestamp) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare events: %w", err)
	}
	defer evStmt.Close()
	itemStmt, err := tx.PrepareContext(ctx, `INSERT INTO event_items (trail, seq, field_id, value_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare items: %w", err)
	}
	defer itemStmt.Close()

	for ordinal, t := range c.trails {
		if _, err := tx.ExecContext(ctx, `INSERT INTO trails (ordinal, uuid) VALUES (?, ?)`, ordinal, t.id[:]); err != nil {
			return fmt.Errorf("write trail %s: %w", t.id, err)
		}
		for seq, ev := range t.events {
			if _, err := evStmt.ExecContext(ctx, ordinal, seq, int64(ev.timestamp)); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
			for f, v := range ev.values {
				if v == 0 {
					continue
				}
				if _, err := itemStmt.ExecContext(ctx, ordinal, seq, f, v); err != nil {
					return fmt.Errorf("write item: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write store: commit: %w", err)
	}
	return nil
}
