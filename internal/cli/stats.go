package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
}

// StatsResult holds the summary of a trail store.
type StatsResult struct {
	Path   string   `json:"path"`
	Trails uint64   `json:"trails"`
	Events uint64   `json:"events"`
	Fields []string `json:"fields"`
	Cost   float64  `json:"estimated_cost"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a trail store",
		Long: `Show the number of trails and events in a trail store, its fields,
and the full-scan cost reported to the query planner.

Examples:
  trailsql stats --db ./clicks.tdb`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to trail store (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if err := checkStore(formatter, opts.Database); err != nil {
		return err
	}

	tbl, err := connect(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open trail store", err)
	}
	defer tbl.Disconnect()

	est := tbl.Estimate()
	result := StatsResult{
		Path:   opts.Database,
		Trails: tbl.NumTrails(),
		Events: uint64(est.Rows),
		Fields: tbl.Fields(),
		Cost:   est.Cost,
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	return outputStatsText(cmd, result)
}

func outputStatsText(cmd *cobra.Command, r StatsResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Store:  %s\n", r.Path)
	fmt.Fprintf(w, "Trails: %d\n", r.Trails)
	fmt.Fprintf(w, "Events: %d\n", r.Events)
	if len(r.Fields) == 0 {
		fmt.Fprintln(w, "Fields: (none)")
	} else {
		fmt.Fprintf(w, "Fields: %s\n", strings.Join(r.Fields, ", "))
	}
	fmt.Fprintf(w, "Cost:   %g\n", r.Cost)

	return nil
}
