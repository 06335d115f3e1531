package sqlmodule

import (
	"modernc.org/sqlite/vtab"

	"github.com/roach88/trailsql/internal/trailvtab"
)

// argv as handed to xCreate/xConnect: module, database, table, then the
// module arguments.
const argvPrefix = 3

// module adapts trailvtab.Connect to vtab.Module.
type module struct {
	opts []trailvtab.Option
}

// Create is Connect: a trail table keeps no state of its own.
func (m *module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

func (m *module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	var modArgs []string
	if len(args) > argvPrefix {
		modArgs = args[argvPrefix:]
	}
	t, err := trailvtab.Connect(ctx.Declare, modArgs, m.opts...)
	if err != nil {
		return nil, err
	}
	return &table{t: t}, nil
}

// table adapts *trailvtab.Table to vtab.Table.
type table struct {
	t *trailvtab.Table
}

// BestIndex offers a single full-scan plan. No constraint is consumed, so
// the engine filters every row itself.
func (t *table) BestIndex(info *vtab.IndexInfo) error {
	est := t.t.Estimate()
	info.EstimatedRows = est.Rows
	info.EstimatedCost = est.Cost
	info.IdxNum = 0
	info.OrderByConsumed = false
	return nil
}

func (t *table) Open() (vtab.Cursor, error) {
	c, err := t.t.Open()
	if err != nil {
		return nil, err
	}
	return &cursor{c: c}, nil
}

func (t *table) Rename(newName string) error {
	return t.t.Rename(newName)
}

func (t *table) Disconnect() error {
	return t.t.Disconnect()
}

func (t *table) Destroy() error {
	return t.t.Destroy()
}

// cursor adapts *trailvtab.Cursor to vtab.Cursor.
type cursor struct {
	c *trailvtab.Cursor
}

func (c *cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return c.c.Filter(idxNum, idxStr, args)
}

func (c *cursor) Next() error {
	return c.c.Next()
}

func (c *cursor) Eof() bool {
	return c.c.EOF()
}

func (c *cursor) Column(col int) (vtab.Value, error) {
	return c.c.Column(col)
}

func (c *cursor) Rowid() (int64, error) {
	return c.c.Rowid()
}

func (c *cursor) Close() error {
	return c.c.Close()
}
