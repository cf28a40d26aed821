package main

import (
	"strings"
	"time"

	"github.com/goodtune/timelog/internal/durfmt"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/spf13/cobra"
)

var startProject string

var startCmd = &cobra.Command{
	Use:   "start TASK",
	Short: "Start tracking a task",
	Example: `  timelog start "code review"
  timelog start "write docs" --project acme`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStart,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the active task",
	Args:  cobra.NoArgs,
	RunE:  runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the paused task",
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the current task and record it",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the task in progress",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	startCmd.Flags().StringVarP(&startProject, "project", "p", "", "Project the task belongs to")

	rootCmd.AddCommand(startCmd, pauseCmd, resumeCmd, stopCmd, statusCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")
	return withStore(func(store storage.Store) error {
		st, err := newTracker(store).Start(cmd.Context(), task, startProject)
		if err != nil {
			return err
		}
		info(cmd.OutOrStdout(), "started %s%s", emph(st.State.Task), projectSuffix(st.State.Project))
		return nil
	})
}

func runPause(cmd *cobra.Command, args []string) error {
	return withStore(func(store storage.Store) error {
		st, err := newTracker(store).Pause(cmd.Context())
		if err != nil {
			return err
		}
		info(cmd.OutOrStdout(), "paused %s  (elapsed %s)", emph(st.State.Task), durfmt.HMS(st.Elapsed.Milliseconds()))
		return nil
	})
}

func runResume(cmd *cobra.Command, args []string) error {
	return withStore(func(store storage.Store) error {
		st, err := newTracker(store).Resume(cmd.Context())
		if err != nil {
			return err
		}
		info(cmd.OutOrStdout(), "resumed %s", emph(st.State.Task))
		return nil
	})
}

func runStop(cmd *cobra.Command, args []string) error {
	return withStore(func(store storage.Store) error {
		rec, err := newTracker(store).Stop(cmd.Context())
		if err != nil {
			return err
		}
		info(cmd.OutOrStdout(), "recorded %s%s  %s on %s",
			emph(rec.Task), projectSuffix(rec.Project), durfmt.HMS(rec.DurationMS), rec.DateString())
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withStore(func(store storage.Store) error {
		st, err := newTracker(store).Status(cmd.Context())
		if err != nil {
			return err
		}

		elapsed := durfmt.HMS(durfmt.ClampNonNeg(st.Elapsed.Milliseconds()))
		if st.State.Active {
			info(cmd.OutOrStdout(), "%s  %s  since %s  —  task: %s%s",
				emph("active"),
				elapsed,
				st.State.StartedAt.In(time.Local).Format(time.RFC3339),
				emph(st.State.Task),
				projectSuffix(st.State.Project))
			return nil
		}

		info(cmd.OutOrStdout(), "%s  accumulated %s  —  task: %s%s",
			emph("paused"),
			elapsed,
			emph(st.State.Task),
			projectSuffix(st.State.Project))
		return nil
	})
}
