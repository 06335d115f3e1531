package trailvtab

import (
	"fmt"
	"log"

	"github.com/hashicorp/go-multierror"
)

// ModuleName is the name used in CREATE VIRTUAL TABLE … USING traildb(location).
const ModuleName = "traildb"

// Table is one virtual table instance. It owns its store exclusively.
type Table struct {
	store  Store
	fields []string
	schema string
}

// Estimate is the planner's cost and row estimate for a full scan.
type Estimate struct {
	Rows int64
	Cost float64
}

type options struct {
	opener Opener
}

// Option configures Connect.
type Option func(*options)

// WithOpener replaces the function used to open the store.
func WithOpener(o Opener) Option {
	return func(opts *options) {
		opts.opener = o
	}
}

// Connect opens the store named by the single module argument, declares the
// derived schema through declare and returns the Table.
//
// args holds the module arguments only (what follows USING traildb).
// Exactly one is required. It may be quoted; see Dequote.
//
// If any step after opening the store fails, the store is closed before
// Connect returns. No Table is returned on error.
func Connect(declare func(schema string) error, args []string, opts ...Option) (_ *Table, err error) {
	if len(args) != 1 {
		return nil, newArgumentError()
	}

	o := options{opener: OpenStore}
	for _, opt := range opts {
		opt(&o)
	}

	path := Dequote(args[0])
	st, err := o.opener(path)
	if err != nil {
		return nil, newStoreError(err, "%s failed to open %s", ModuleName, path)
	}
	defer func() {
		if err == nil {
			return
		}
		if cerr := st.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("close store: %w", cerr))
		}
	}()

	fields, err := readCatalog(st)
	if err != nil {
		return nil, err
	}

	schema, err := Declaration(fields)
	if err != nil {
		return nil, err
	}

	if err := declare(schema); err != nil {
		return nil, fmt.Errorf("declare schema: %w", err)
	}

	log.Printf("[DEBUG] %s connected to %s: %d fields, %d trails, %d events",
		ModuleName, path, len(fields), st.NumTrails(), st.NumEvents())

	return &Table{store: st, fields: fields, schema: schema}, nil
}

// Schema returns the CREATE TABLE statement declared at connect time.
func (t *Table) Schema() string {
	return t.schema
}

// Fields returns the catalog field names in column order (columns 2…).
func (t *Table) Fields() []string {
	return append([]string(nil), t.fields...)
}

// NumTrails returns the number of trails in the store, zero once disconnected.
func (t *Table) NumTrails() uint64 {
	if t.store == nil {
		return 0
	}
	return t.store.NumTrails()
}

// Estimate reports the cost of a full scan: one unit per event.
func (t *Table) Estimate() Estimate {
	if t.store == nil {
		return Estimate{}
	}
	n := t.store.NumEvents()
	return Estimate{Rows: int64(n), Cost: float64(n)}
}

// Rename always succeeds; nothing in the adapter depends on the table name.
func (t *Table) Rename(newName string) error {
	return nil
}

// Disconnect closes the store. Calling it again is a no-op.
// All cursors must be closed first.
func (t *Table) Disconnect() error {
	if t.store == nil {
		return nil
	}
	err := t.store.Close()
	t.store = nil
	return err
}

// Destroy is Disconnect: the table keeps nothing on disk of its own.
func (t *Table) Destroy() error {
	return t.Disconnect()
}
