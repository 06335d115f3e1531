package trailvtab

import "github.com/roach88/trailsql/internal/trail"

// cursorState is the position of a Cursor in the flattened row stream.
type cursorState int

const (
	// stateUnopened: store cursor is at the start of a trail, no row loaded.
	stateUnopened cursorState = iota
	// statePositioned: event is the current row and belongs to trail.
	statePositioned
	// stateExhausted: every trail has been consumed.
	stateExhausted
	// stateEmpty: the store has no trails at all.
	stateEmpty
)

func (s cursorState) String() string {
	switch s {
	case stateUnopened:
		return "unopened"
	case statePositioned:
		return "positioned"
	case stateExhausted:
		return "exhausted"
	case stateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Cursor is a single scan over a Table. It is not safe for concurrent use,
// but any number of Cursors may be open against the same Table.
type Cursor struct {
	store  Store
	trails TrailCursor
	event  *trail.Event
	trail  uint64
	total  uint64
	row    int64
	state  cursorState

	// hex of the trail UUID, cached per trail
	idTrail uint64
	idHex   string
}

// Open creates a cursor with its own store cursor, positioned at trail 0.
// The host must call Filter before reading rows.
func (t *Table) Open() (*Cursor, error) {
	if t.store == nil {
		return nil, newProtocolError("%s: open on a disconnected table", ModuleName)
	}

	tc, err := t.store.NewCursor()
	if err != nil {
		return nil, newStoreError(err, "%s failed to create cursor", ModuleName)
	}

	c := &Cursor{
		store:  t.store,
		trails: tc,
		total:  t.store.NumTrails(),
		row:    -1,
	}
	if c.total == 0 {
		c.state = stateEmpty
		return c, nil
	}

	if err := tc.GetTrail(0); err != nil {
		tc.Close()
		return nil, newStoreError(err, "%s failed to position cursor at trail 0", ModuleName)
	}
	c.state = stateUnopened
	return c, nil
}

// Filter restarts the scan at trail 0 and loads the first row.
// Constraint arguments are accepted but never narrow the scan.
func (c *Cursor) Filter(idxNum int, idxStr string, vals []any) error {
	if c.state == stateEmpty {
		return nil
	}
	if c.trails == nil {
		return newProtocolError("%s: filter on a closed cursor", ModuleName)
	}

	c.event = nil
	c.trail = 0
	c.row = -1
	if err := c.trails.GetTrail(0); err != nil {
		c.state = stateExhausted
		return newStoreError(err, "%s failed to position cursor at trail 0", ModuleName)
	}
	c.state = stateUnopened

	return c.advance()
}

// Next moves to the following row. It is a no-op once the scan is over.
func (c *Cursor) Next() error {
	return c.advance()
}

// advance loads the next event, skipping trails that have none.
func (c *Cursor) advance() error {
	switch c.state {
	case stateExhausted, stateEmpty:
		return nil
	}

	for {
		if ev := c.trails.Next(); ev != nil {
			c.event = ev
			c.row++
			c.state = statePositioned
			return nil
		}

		c.trail++
		if c.trail >= c.total {
			c.event = nil
			c.state = stateExhausted
			return nil
		}
		if err := c.trails.GetTrail(c.trail); err != nil {
			c.event = nil
			c.state = stateExhausted
			return newStoreError(err, "%s failed to position cursor at trail %d", ModuleName, c.trail)
		}
	}
}

// EOF reports whether the scan is over.
func (c *Cursor) EOF() bool {
	return c.state == stateExhausted || c.state == stateEmpty
}

// Rowid returns the sequence number of the current row. The first row of a
// scan is 0; every advance adds exactly one.
func (c *Cursor) Rowid() (int64, error) {
	if c.event == nil {
		return 0, newProtocolError("%s: rowid requested in state %s", ModuleName, c.state)
	}
	return c.row, nil
}

// Close releases the store cursor. It is safe at any state and more than once.
func (c *Cursor) Close() error {
	if c.trails != nil {
		c.trails.Close()
		c.trails = nil
	}
	c.event = nil
	if c.state != stateEmpty {
		c.state = stateExhausted
	}
	return nil
}
