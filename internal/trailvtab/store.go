package trailvtab

import (
	"github.com/google/uuid"

	"github.com/roach88/trailsql/internal/trail"
)

// Store is the read-only view of a trail store the adapter needs.
// Implementations must be safe to share between cursors once opened.
type Store interface {
	Catalog

	NumTrails() uint64
	NumEvents() uint64
	UUID(ordinal uint64) (uuid.UUID, error)
	ItemValue(item trail.Item) []byte
	NewCursor() (TrailCursor, error)
	Close() error
}

// TrailCursor walks the events of one trail at a time.
type TrailCursor interface {
	GetTrail(ordinal uint64) error
	Next() *trail.Event
	Close()
}

// Opener opens the store found at a dequoted location.
type Opener func(path string) (Store, error)

// OpenStore opens a trail store file. It is the default Opener.
func OpenStore(path string) (Store, error) {
	s, err := trail.Open(path)
	if err != nil {
		return nil, err
	}
	return fileStore{s}, nil
}

// fileStore adapts *trail.Store to Store.
type fileStore struct {
	*trail.Store
}

func (s fileStore) NewCursor() (TrailCursor, error) {
	c, err := s.Store.NewCursor()
	if err != nil {
		return nil, err
	}
	return c, nil
}
