package trail

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	bob   = uuid.MustParse("ffeeddcc-bbaa-9988-7766-554433221100")
)

// buildTestStore writes a store with the given fields using fn and opens it.
func buildTestStore(t *testing.T, fields []string, fn func(c *Constructor)) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tdb")
	c, err := NewConstructor(path, fields)
	require.NoError(t, err)
	if fn != nil {
		fn(c)
	}
	require.NoError(t, c.Finalize(context.Background()))

	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func vals(vs ...string) [][]byte {
	out := make([][]byte, len(vs))
	for i, v := range vs {
		out[i] = []byte(v)
	}
	return out
}

func TestOpen_NotFound(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.tdb"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_NotAStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.tdb")
	require.NoError(t, os.WriteFile(path, []byte("definitely not sqlite"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
}

func TestOpen_DoesNotCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.tdb")
	_, _ = Open(path)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "Open must never create a store")
}

func TestOpen_EmptyStore(t *testing.T) {
	s := buildTestStore(t, []string{"a", "b"}, nil)

	assert.Equal(t, uint64(0), s.NumTrails())
	assert.Equal(t, uint64(0), s.NumEvents())
	assert.Equal(t, 2, s.NumFields())
	assert.Equal(t, []string{"a", "b"}, s.Fields())
}

func TestOpen_Pragmas(t *testing.T) {
	s := buildTestStore(t, []string{"a"}, nil)

	require.NoError(t, s.verifyPragma("query_only", "1"))
	require.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	require.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestClose_Idempotent(t *testing.T) {
	s := buildTestStore(t, []string{"a"}, nil)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.NewCursor()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStore_Catalog(t *testing.T) {
	s := buildTestStore(t, []string{"event", "größe"}, nil)

	name, err := s.FieldName(1)
	require.NoError(t, err)
	assert.Equal(t, "größe", name)

	_, err = s.FieldName(2)
	assert.Error(t, err)
	_, err = s.FieldName(-1)
	assert.Error(t, err)
}

func TestStore_TrailsKeepFirstSeenOrder(t *testing.T) {
	s := buildTestStore(t, []string{"a"}, func(c *Constructor) {
		require.NoError(t, c.Add(bob, 1, vals("x")))
		require.NoError(t, c.Add(alice, 2, vals("y")))
		require.NoError(t, c.Add(bob, 3, vals("z")))
	})

	require.Equal(t, uint64(2), s.NumTrails())
	assert.Equal(t, uint64(3), s.NumEvents())

	id, err := s.UUID(0)
	require.NoError(t, err)
	assert.Equal(t, bob, id)

	ordinal, err := s.TrailID(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ordinal)

	_, err = s.UUID(2)
	assert.ErrorIs(t, err, ErrTrailNotFound)
	_, err = s.TrailID(uuid.New())
	assert.ErrorIs(t, err, ErrTrailNotFound)
}

func TestCursor_EventsSortedByTimestamp(t *testing.T) {
	s := buildTestStore(t, []string{"a"}, func(c *Constructor) {
		require.NoError(t, c.Add(alice, 30, vals("third")))
		require.NoError(t, c.Add(alice, 10, vals("first")))
		require.NoError(t, c.Add(alice, 20, vals("second")))
	})

	cur, err := s.NewCursor()
	require.NoError(t, err)
	defer cur.Close()
	require.NoError(t, cur.GetTrail(0))

	var got []string
	var ts []uint64
	for ev := cur.Next(); ev != nil; ev = cur.Next() {
		ts = append(ts, ev.Timestamp)
		got = append(got, string(s.ItemValue(ev.Items[0])))
	}
	assert.Equal(t, []uint64{10, 20, 30}, ts)
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestCursor_EmptyTrail(t *testing.T) {
	s := buildTestStore(t, []string{"a"}, func(c *Constructor) {
		require.NoError(t, c.AddTrail(alice))
	})

	require.Equal(t, uint64(1), s.NumTrails())
	cur, err := s.NewCursor()
	require.NoError(t, err)
	require.NoError(t, cur.GetTrail(0))
	assert.Nil(t, cur.Next())
}

func TestCursor_GetTrailOutOfRange(t *testing.T) {
	s := buildTestStore(t, []string{"a"}, nil)

	cur, err := s.NewCursor()
	require.NoError(t, err)
	assert.ErrorIs(t, cur.GetTrail(0), ErrTrailNotFound)
}

func TestCursor_RepositionRestarts(t *testing.T) {
	s := buildTestStore(t, []string{"a"}, func(c *Constructor) {
		require.NoError(t, c.Add(alice, 1, vals("x")))
		require.NoError(t, c.Add(alice, 2, vals("y")))
	})

	cur, err := s.NewCursor()
	require.NoError(t, err)
	require.NoError(t, cur.GetTrail(0))
	require.NotNil(t, cur.Next())
	require.NotNil(t, cur.Next())
	require.Nil(t, cur.Next())

	require.NoError(t, cur.GetTrail(0))
	ev := cur.Next()
	require.NotNil(t, ev)
	assert.Equal(t, uint64(1), ev.Timestamp)
}

func TestItemValue_EmptyAndBinary(t *testing.T) {
	binary := []byte{'a', 0, 'b', 0}
	s := buildTestStore(t, []string{"a", "b"}, func(c *Constructor) {
		require.NoError(t, c.Add(alice, 1, [][]byte{nil, binary}))
	})

	cur, err := s.NewCursor()
	require.NoError(t, err)
	require.NoError(t, cur.GetTrail(0))
	ev := cur.Next()
	require.NotNil(t, ev)

	assert.Equal(t, uint32(0), ev.Items[0].Value)
	assert.Empty(t, s.ItemValue(ev.Items[0]))
	assert.Equal(t, binary, s.ItemValue(ev.Items[1]))
	assert.Empty(t, s.ItemValue(Item{Field: 7, Value: 1}))
}

func TestItemValue_LexiconShared(t *testing.T) {
	s := buildTestStore(t, []string{"a"}, func(c *Constructor) {
		require.NoError(t, c.Add(alice, 1, vals("same")))
		require.NoError(t, c.Add(bob, 1, vals("same")))
	})

	cur, err := s.NewCursor()
	require.NoError(t, err)
	require.NoError(t, cur.GetTrail(0))
	first := cur.Next().Items[0]
	require.NoError(t, cur.GetTrail(1))
	second := cur.Next().Items[0]

	assert.Equal(t, first, second)
}

func TestTimestamp_FullRange(t *testing.T) {
	const big = uint64(1) << 63
	s := buildTestStore(t, []string{"a"}, func(c *Constructor) {
		require.NoError(t, c.Add(alice, big+5, vals("x")))
	})

	cur, err := s.NewCursor()
	require.NoError(t, err)
	require.NoError(t, cur.GetTrail(0))
	assert.Equal(t, big+5, cur.Next().Timestamp)
}
