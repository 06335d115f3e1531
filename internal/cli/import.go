package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/trailsql/internal/manifest"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <manifest>",
		Short: "Build a trail store from a manifest",
		Long: `Build a new trail store from a YAML or CUE manifest.

The manifest lists the store's fields and its trails with their events.
The store file must not exist yet.

Examples:
  trailsql import --db ./clicks.tdb clicks.yaml
  trailsql import --db ./clicks.tdb clicks.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path of the trail store to create (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runImport(opts *ImportOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeManifest, "failed to load manifest", err)
	}
	formatter.VerboseLog("Loaded %s: %d field(s), %d trail(s), %d event(s)",
		manifestPath, len(m.Fields), len(m.Trails), m.NumEvents())

	sum, err := manifest.Build(cmd.Context(), m, opts.Database)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeWriteFailed, "failed to build trail store", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(sum)
	}
	return formatter.Success(fmt.Sprintf("Imported %d event(s) in %d trail(s) with %d field(s) into %s",
		sum.Events, sum.Trails, sum.Fields, sum.Path))
}
