package testutil

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trailsql/internal/trail"
)

// Fixture describes a trail store for tests.
type Fixture struct {
	Fields []string
	Trails []TrailFixture
}

// TrailFixture is one trail of a Fixture. A trail with no Events is stored
// empty. Events with a zero Timestamp get one from the fixture clock.
type TrailFixture struct {
	ID     uuid.UUID
	Events []EventFixture
}

// EventFixture is one event; Values are given in catalog order.
type EventFixture struct {
	Timestamp uint64
	Values    []string
}

// TrailID returns a deterministic UUID whose last eight bytes encode n, so
// its hex form is predictable in golden files.
func TrailID(n uint64) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], n)
	return id
}

// BuildStore writes f to a new store file under t.TempDir and returns its path.
func BuildStore(t *testing.T, f Fixture) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.tdb")
	WriteStore(t, path, f)
	return path
}

// WriteStore writes f to path, which must not exist yet.
func WriteStore(t *testing.T, path string, f Fixture) {
	t.Helper()

	c, err := trail.NewConstructor(path, f.Fields)
	require.NoError(t, err)

	clock := NewDeterministicClock(0, 1)
	for _, tr := range f.Trails {
		if len(tr.Events) == 0 {
			require.NoError(t, c.AddTrail(tr.ID))
			continue
		}
		for _, ev := range tr.Events {
			ts := ev.Timestamp
			if ts == 0 {
				ts = clock.Next()
			}
			require.NoError(t, c.Add(tr.ID, ts, values(len(f.Fields), ev.Values)))
		}
	}

	require.NoError(t, c.Finalize(context.Background()))
}

// OpenStore builds f and opens it, closing the store when the test ends.
func OpenStore(t *testing.T, f Fixture) *trail.Store {
	t.Helper()
	s, err := trail.Open(BuildStore(t, f))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// values pads or truncates vs to n entries.
func values(n int, vs []string) [][]byte {
	out := make([][]byte, n)
	for i := 0; i < n && i < len(vs); i++ {
		out[i] = []byte(vs[i])
	}
	return out
}
