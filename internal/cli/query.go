package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/trailsql/internal/sqlmodule"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	Table    string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run SQL against a trail store",
		Long: `Mount a trail store as a virtual table and run one SQL statement.

The table is named "events" unless --table or the config file says
otherwise. Columns are uuid, timestamp, then one per store field.
Text output is tab-separated with a header line.

Examples:
  trailsql query --db ./clicks.tdb "SELECT * FROM events LIMIT 10"
  trailsql query --db ./clicks.tdb --table clicks "SELECT action, count(*) FROM clicks GROUP BY action"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to trail store (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Table, "table", "", "virtual table name (default \"events\")")

	return cmd
}

func runQuery(opts *QueryOptions, query string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	table := opts.Table
	if table == "" {
		table = opts.RootOptions.Table
	}
	if table == "" {
		table = DefaultTable
	}

	if err := checkStore(formatter, opts.Database); err != nil {
		return err
	}

	sess, err := sqlmodule.Open(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to open query engine", err)
	}
	defer sess.Close()

	if err := sess.Attach(ctx, table, opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open trail store", err)
	}
	formatter.VerboseLog("Mounted %s as %s", opts.Database, table)

	res, err := sess.Query(ctx, query)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeQuery, "query failed", err)
	}
	formatter.VerboseLog("%d row(s)", len(res.Rows))

	if formatter.IsJSON() {
		return formatter.Success(res)
	}
	return outputQueryText(cmd.OutOrStdout(), res)
}

// outputQueryText writes a header line and one line per row, tab-separated.
func outputQueryText(w io.Writer, res *sqlmodule.Result) error {
	if _, err := fmt.Fprintln(w, strings.Join(res.Columns, "\t")); err != nil {
		return err
	}

	cells := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// formatValue renders one SQL value for text output. NULL is printed as
// NULL and every other value in its natural form.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
