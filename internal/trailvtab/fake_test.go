package trailvtab

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/trailsql/internal/trail"
)

var errInjected = errors.New("injected failure")

// fakeStore is an in-memory Store with switchable failures.
type fakeStore struct {
	fields []string
	ids    []uuid.UUID
	trails [][]trail.Event
	lex    map[trail.Item][]byte

	fieldErrAt   int // FieldName fails at this index; -1 disables
	cursorErr    bool
	getTrailErrs map[uint64]bool
	closeErr     error

	closed  int
	cursors int
}

func newFakeStore(fields ...string) *fakeStore {
	return &fakeStore{
		fields:       fields,
		lex:          make(map[trail.Item][]byte),
		fieldErrAt:   -1,
		getTrailErrs: make(map[uint64]bool),
	}
}

// addTrail appends a trail whose events carry the given values in catalog order.
func (s *fakeStore) addTrail(id uuid.UUID, events ...[]string) {
	var evs []trail.Event
	for i, vals := range events {
		items := make([]trail.Item, len(s.fields))
		for f := range items {
			items[f] = trail.Item{Field: f}
			if f < len(vals) && vals[f] != "" {
				items[f].Value = uint32(len(s.lex) + 1)
				s.lex[items[f]] = []byte(vals[f])
			}
		}
		evs = append(evs, trail.Event{Timestamp: uint64(100*len(s.ids) + i), Items: items})
	}
	s.ids = append(s.ids, id)
	s.trails = append(s.trails, evs)
}

func (s *fakeStore) NumFields() int { return len(s.fields) }

func (s *fakeStore) FieldName(i int) (string, error) {
	if i == s.fieldErrAt {
		return "", errInjected
	}
	return s.fields[i], nil
}

func (s *fakeStore) NumTrails() uint64 { return uint64(len(s.ids)) }

func (s *fakeStore) NumEvents() uint64 {
	var n uint64
	for _, evs := range s.trails {
		n += uint64(len(evs))
	}
	return n
}

func (s *fakeStore) UUID(ordinal uint64) (uuid.UUID, error) {
	if ordinal >= uint64(len(s.ids)) {
		return uuid.Nil, fmt.Errorf("no trail %d", ordinal)
	}
	return s.ids[ordinal], nil
}

func (s *fakeStore) ItemValue(item trail.Item) []byte { return s.lex[item] }

func (s *fakeStore) NewCursor() (TrailCursor, error) {
	if s.cursorErr {
		return nil, errInjected
	}
	s.cursors++
	return &fakeCursor{store: s}, nil
}

func (s *fakeStore) Close() error {
	s.closed++
	return s.closeErr
}

func (s *fakeStore) opener() Opener {
	return func(string) (Store, error) { return s, nil }
}

type fakeCursor struct {
	store  *fakeStore
	events []trail.Event
	pos    int
}

func (c *fakeCursor) GetTrail(ordinal uint64) error {
	if c.store.getTrailErrs[ordinal] {
		return errInjected
	}
	c.events = c.store.trails[ordinal]
	c.pos = 0
	return nil
}

func (c *fakeCursor) Next() *trail.Event {
	if c.pos >= len(c.events) {
		return nil
	}
	ev := &c.events[c.pos]
	c.pos++
	return ev
}

func (c *fakeCursor) Close() {
	c.store.cursors--
}
