package trail

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrClosed is returned when a cursor is created on, or used after, a closed store.
var ErrClosed = errors.New("trail store is closed")

// Cursor iterates over the events of one trail at a time.
// A Cursor is not safe for concurrent use; open one per goroutine.
type Cursor struct {
	store  *Store
	events []Event
	pos    int
}

// NewCursor creates a cursor bound to the store.
// The cursor is unpositioned until GetTrail is called.
func (s *Store) NewCursor() (*Cursor, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	return &Cursor{store: s}, nil
}

// GetTrail positions the cursor at the first event of the trail with the
// given ordinal. Events are decoded eagerly, so no database resources are
// held between calls.
func (c *Cursor) GetTrail(ordinal uint64) error {
	return c.GetTrailContext(context.Background(), ordinal)
}

// GetTrailContext is GetTrail with a caller-supplied context.
func (c *Cursor) GetTrailContext(ctx context.Context, ordinal uint64) error {
	if c.store == nil || c.store.db == nil {
		return ErrClosed
	}
	if ordinal >= c.store.NumTrails() {
		return fmt.Errorf("%w: ordinal %d", ErrTrailNotFound, ordinal)
	}

	events, err := c.store.readTrail(ctx, ordinal)
	if err != nil {
		return err
	}

	c.events = events
	c.pos = 0
	return nil
}

// Next returns the next event of the current trail, or nil when the trail
// is exhausted. The returned event stays valid until the next GetTrail.
func (c *Cursor) Next() *Event {
	if c.pos >= len(c.events) {
		return nil
	}
	ev := &c.events[c.pos]
	c.pos++
	return ev
}

// Close releases the decoded trail. Calling Close more than once is safe.
func (c *Cursor) Close() {
	c.events = nil
	c.pos = 0
	c.store = nil
}

// readTrail decodes all events of one trail in seq order.
func (s *Store) readTrail(ctx context.Context, ordinal uint64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.seq, e.timestamp, i.field_id, i.value_id
		FROM events e
		LEFT JOIN event_items i ON i.trail = e.trail AND i.seq = e.seq
		WHERE e.trail = ?
		ORDER BY e.seq ASC, i.field_id ASC
	`, int64(ordinal))
	if err != nil {
		return nil, fmt.Errorf("query trail %d: %w", ordinal, err)
	}
	defer rows.Close()

	numFields := len(s.fields)
	events := []Event{}
	lastSeq := int64(-1)
	for rows.Next() {
		var seq, ts int64
		var field, value sql.NullInt64
		if err := rows.Scan(&seq, &ts, &field, &value); err != nil {
			return nil, fmt.Errorf("scan trail %d: %w", ordinal, err)
		}

		if seq != lastSeq {
			items := make([]Item, numFields)
			for f := range items {
				items[f] = Item{Field: f}
			}
			events = append(events, Event{Timestamp: uint64(ts), Items: items})
			lastSeq = seq
		}

		if !field.Valid {
			continue
		}
		f := int(field.Int64)
		if f < 0 || f >= numFields {
			return nil, fmt.Errorf("%w: trail %d references unknown field %d", ErrCorrupt, ordinal, f)
		}
		events[len(events)-1].Items[f].Value = uint32(value.Int64)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trail %d: %w", ordinal, err)
	}

	return events, nil
}
