package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goodtune/timelog/internal/durfmt"
	"github.com/goodtune/timelog/internal/period"
	"github.com/goodtune/timelog/internal/report"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/spf13/cobra"
)

var reportProject string

var reportCmd = &cobra.Command{
	Use:   "report PERIOD",
	Short: "Summarize recorded time for a period",
	Long: `Summarize recorded time for a period. PERIOD is one of:
  ` + strings.Join(period.Flags(), ", "),
	Example: `  timelog report today
  timelog report this-week --project acme`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: period.Flags(),
	RunE:      runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportProject, "project", "p", "", "Only include records for this project")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	p, err := period.Parse(args[0])
	if err != nil {
		return err
	}

	return withStore(func(store storage.Store) error {
		r, err := report.Load(cmd.Context(), store.Records(), p, today(), reportProject)
		if errors.Is(err, storage.ErrNotFound) {
			warn(cmd.ErrOrStderr(), "no records found")
			return nil
		}
		if err != nil {
			return err
		}
		if r.Empty() {
			warn(cmd.ErrOrStderr(), "no records in selected period")
			return nil
		}

		renderReport(cmd.OutOrStdout(), r)
		return nil
	})
}

// renderReport prints r as a fixed-width table with a TOTAL row.
func renderReport(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, emph(r.Title()))

	taskW, projectW := len("TASK"), len("PROJECT")
	for _, rec := range r.Rows {
		taskW = max(taskW, len(rec.Task))
		projectW = max(projectW, len(rec.Project))
	}

	row := func(task, project, date, duration string) {
		fmt.Fprintf(w, "%-*s  %-*s  %-10s  %10s\n", taskW, task, projectW, project, date, duration)
	}
	rule := func() {
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			strings.Repeat("-", taskW), strings.Repeat("-", projectW), strings.Repeat("-", 10), strings.Repeat("-", 10))
	}

	row("TASK", "PROJECT", "DATE", "DURATION")
	rule()
	for _, rec := range r.Rows {
		project := rec.Project
		if project == "" {
			project = "-"
		}
		row(rec.Task, project, rec.DateString(), durfmt.Short(rec.DurationMS))
	}
	rule()
	row("TOTAL", "", "", durfmt.Short(r.Total.Milliseconds()))
}
