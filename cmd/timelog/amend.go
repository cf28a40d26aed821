package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/goodtune/timelog/internal/amend"
	"github.com/goodtune/timelog/internal/durfmt"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/spf13/cobra"
)

var (
	amendNewTask     string
	amendNewDuration int64
	amendNewProject  string
	amendDryRun      bool
)

var amendCmd = &cobra.Command{
	Use:   "amend DATE TASK-PATTERN",
	Short: "Correct a recorded task",
	Long: `Correct a recorded task. The record is selected by its date (YYYY-MM-DD)
and a case-sensitive substring of its task name, which must match exactly one
record. Pass --new-project "" to remove the project.`,
	Example: `  timelog amend 2024-01-15 review --new-duration 45
  timelog amend 2024-01-15 "write docs" --new-task "write API docs" --new-project acme
  timelog amend 2024-01-15 docs --new-project "" --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: runAmend,
}

func init() {
	amendCmd.Flags().StringVar(&amendNewTask, "new-task", "", "Replace the task name")
	amendCmd.Flags().Int64Var(&amendNewDuration, "new-duration", 0, "Replace the duration, in whole minutes")
	amendCmd.Flags().StringVar(&amendNewProject, "new-project", "", "Replace the project (empty to remove)")
	amendCmd.Flags().BoolVar(&amendDryRun, "dry-run", false, "Show the changes without saving them")
	rootCmd.AddCommand(amendCmd)
}

func runAmend(cmd *cobra.Command, args []string) error {
	date, err := amend.ParseDate(args[0])
	if err != nil {
		return err
	}

	req := amend.Request{
		Date:    date,
		Pattern: args[1],
		DryRun:  amendDryRun,
	}
	// Only flags given on the command line become changes.
	flags := cmd.Flags()
	if flags.Changed("new-task") {
		req.Changes.Task = &amendNewTask
	}
	if flags.Changed("new-duration") {
		req.Changes.DurationMinutes = &amendNewDuration
	}
	if flags.Changed("new-project") {
		req.Changes.Project = &amendNewProject
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	return withStore(func(store storage.Store) error {
		result, err := amend.New(store.Records(), logger).Amend(cmd.Context(), req)
		if err != nil {
			var ambiguous *amend.AmbiguousMatchError
			if errors.As(err, &ambiguous) {
				warn(errOut, "Found %d matching records. Please be more specific with your task pattern:", len(ambiguous.Matches))
				for _, rec := range ambiguous.Matches {
					printRecord(out, rec)
				}
			}
			return err
		}

		info(out, "Found record to amend:")
		printRecord(out, result.Original)
		info(out, "\nChanges to apply:")
		for _, change := range result.Changes {
			info(out, "  %s", change)
		}

		if !result.Applied {
			info(out, "Dry run mode - no changes were made")
			return nil
		}
		info(out, "Successfully amended record for %s - %s", result.Amended.DateString(), result.Amended.Task)
		return nil
	})
}

func printRecord(w io.Writer, rec storage.Record) {
	project := ""
	if rec.HasProject() {
		project = fmt.Sprintf(" (project: %s)", rec.Project)
	}
	info(w, "  %s - %s - %s%s", rec.DateString(), rec.Task, durfmt.HMS(rec.DurationMS), project)
}
