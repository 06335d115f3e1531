package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/trailsql/internal/sqlmodule"
	"github.com/roach88/trailsql/internal/trailvtab"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Database string
}

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Declaration string   `json:"declaration"`
	Columns     []string `json:"columns"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the table declaration of a trail store",
		Long: `Print the CREATE TABLE statement a trail store is mounted with.

Examples:
  trailsql schema --db ./clicks.tdb
  trailsql schema --db ./clicks.tdb --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to trail store (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if err := checkStore(formatter, opts.Database); err != nil {
		return err
	}

	tbl, err := connect(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open trail store", err)
	}
	defer tbl.Disconnect()

	if formatter.IsJSON() {
		cols := append([]string{trailvtab.UUIDColumn, trailvtab.TimestampColumn}, tbl.Fields()...)
		return formatter.Success(SchemaResult{Declaration: tbl.Schema(), Columns: cols})
	}
	return formatter.Success(tbl.Schema())
}

// connect mounts the store at path the way the SQL module does, without
// a host database.
func connect(path string) (*trailvtab.Table, error) {
	declare := func(string) error { return nil }
	return trailvtab.Connect(declare, []string{sqlmodule.QuoteLiteral(path)})
}
