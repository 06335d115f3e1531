package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trailsql/internal/testutil"
)

// clicks is the store behind the golden files.
var clicks = testutil.Fixture{
	Fields: []string{"action", "page"},
	Trails: []testutil.TrailFixture{
		{ID: testutil.TrailID(1), Events: []testutil.EventFixture{
			{Timestamp: 10, Values: []string{"view", "/"}},
			{Timestamp: 20, Values: []string{"click", ""}},
		}},
		{ID: testutil.TrailID(2), Events: []testutil.EventFixture{
			{Timestamp: 5, Values: []string{"view", "/about"}},
		}},
		{ID: testutil.TrailID(3)},
	},
}

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// execute runs cmd with args and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
