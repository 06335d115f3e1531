package trail

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		wantErr bool
	}{
		{"empty catalog", nil, false},
		{"simple", []string{"event", "user_id", "col$2"}, false},
		{"non-ascii", []string{"größe", "名前"}, false},
		{"empty name", []string{""}, true},
		{"leading digit", []string{"1st"}, true},
		{"space", []string{"first name"}, true},
		{"punctuation", []string{"a,b"}, true},
		{"reserved uuid", []string{"uuid"}, true},
		{"reserved timestamp any case", []string{"TimeStamp"}, true},
		{"duplicate", []string{"a", "a"}, true},
		{"duplicate ignoring case", []string{"a", "A"}, true},
		{"duplicate after NFC", []string{"caf\u00e9", "cafe\u0301"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFields(tt.fields)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidField)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewConstructor_RefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exists.tdb")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewConstructor(path, []string{"a"})
	assert.ErrorIs(t, err, ErrExists)
}

func TestConstructor_ValueCount(t *testing.T) {
	c, err := NewConstructor(filepath.Join(t.TempDir(), "s.tdb"), []string{"a", "b"})
	require.NoError(t, err)

	err = c.Add(alice, 1, vals("only-one"))
	assert.ErrorIs(t, err, ErrValueCount)
}

func TestConstructor_FinalizeTwice(t *testing.T) {
	c, err := NewConstructor(filepath.Join(t.TempDir(), "s.tdb"), []string{"a"})
	require.NoError(t, err)

	require.NoError(t, c.Finalize(context.Background()))
	assert.ErrorIs(t, c.Finalize(context.Background()), ErrFinalized)
	assert.ErrorIs(t, c.Add(alice, 1, vals("x")), ErrFinalized)
	assert.ErrorIs(t, c.AddTrail(alice), ErrFinalized)
}

func TestConstructor_AbortWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.tdb")
	c, err := NewConstructor(path, []string{"a"})
	require.NoError(t, err)
	require.NoError(t, c.Add(alice, 1, vals("x")))

	c.Abort()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, c.Finalize(context.Background()), ErrFinalized)
}

func TestConstructor_FailedFinalizeRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.tdb")
	c, err := NewConstructor(path, []string{"a"})
	require.NoError(t, err)
	require.NoError(t, c.Add(alice, 1, vals("x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, c.Finalize(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "partial store must be removed")
}

func TestConstructor_KeepsFieldsVerbatim(t *testing.T) {
	fields := []string{"café", "Größe"}
	c, err := NewConstructor(filepath.Join(t.TempDir(), "s.tdb"), fields)
	require.NoError(t, err)

	assert.Equal(t, fields, c.Fields())
}

func TestConstructor_StableTimestampTies(t *testing.T) {
	s := buildTestStore(t, []string{"a"}, func(c *Constructor) {
		require.NoError(t, c.Add(alice, 5, vals("one")))
		require.NoError(t, c.Add(alice, 5, vals("two")))
		require.NoError(t, c.Add(alice, 1, vals("zero")))
	})

	cur, err := s.NewCursor()
	require.NoError(t, err)
	require.NoError(t, cur.GetTrail(0))

	var got []string
	for ev := cur.Next(); ev != nil; ev = cur.Next() {
		got = append(got, string(s.ItemValue(ev.Items[0])))
	}
	assert.Equal(t, []string{"zero", "one", "two"}, got)
}
