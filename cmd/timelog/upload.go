package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goodtune/timelog/internal/period"
	"github.com/goodtune/timelog/internal/plugin"
	"github.com/goodtune/timelog/internal/report"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/spf13/cobra"
)

var (
	uploadPlugin      string
	uploadDryRun      bool
	uploadListPlugins bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload PERIOD",
	Short: "Send recorded time for a period to an upload plugin",
	Long: `Send recorded time for a period to an upload plugin. Plugins are
executables named timelog-<name> in the plugin directory. They receive the
records as JSON on stdin and answer with JSON on stdout. PERIOD is one of:
  ` + strings.Join(period.Flags(), ", "),
	Example: `  timelog upload --list-plugins
  timelog upload this-week
  timelog upload last-week --plugin toggl --dry-run`,
	ValidArgs: period.Flags(),
	Args: func(cmd *cobra.Command, args []string) error {
		if uploadListPlugins {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadPlugin, "plugin", "p", "", "Plugin to run (required when several are installed)")
	uploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "Ask the plugin not to upload anything")
	uploadCmd.Flags().BoolVar(&uploadListPlugins, "list-plugins", false, "List installed plugins")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	registry, err := newRegistry()
	if err != nil {
		return err
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if uploadListPlugins {
		return listPlugins(out, registry)
	}

	p, err := period.Parse(args[0])
	if err != nil {
		return err
	}

	return withStore(func(store storage.Store) error {
		all, err := store.Records().LoadAll(cmd.Context())
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load records: %w", err)
		}

		records := report.Filter(all, p, today(), "")
		if len(records) == 0 {
			warn(errOut, "no records in selected period")
			return nil
		}

		name, err := plugin.Select(registry, uploadPlugin)
		if err != nil {
			return err
		}

		info(out, "Executing plugin: %s", emph(name))
		if uploadDryRun {
			info(out, "(dry run mode)")
		}

		executor := plugin.NewExecutor(registry, cfg.Plugins.TimeoutDuration(), logger)
		resp, err := executor.Upload(cmd.Context(), name, records, p, uploadDryRun)
		if err != nil {
			return err
		}

		if !resp.Success {
			warn(errOut, "Plugin failed: %s", resp.Message)
			for _, e := range resp.Errors {
				warn(errOut, "  %s", e)
			}
			return nil
		}

		info(out, "%s", resp.Message)
		if resp.UploadedCount != nil {
			info(out, "Processed %d records", *resp.UploadedCount)
		}
		if len(resp.Errors) > 0 {
			warn(errOut, "Some warnings occurred:")
			for _, e := range resp.Errors {
				warn(errOut, "  %s", e)
			}
		}
		return nil
	})
}

func listPlugins(w io.Writer, registry *plugin.DirRegistry) error {
	names, err := registry.List()
	if err != nil {
		return err
	}

	if len(names) == 0 {
		info(w, "No plugins found")
		info(w, "Place plugin scripts in: %s", registry.Dir())
		info(w, "Plugin scripts should be named '%s<name>' and be executable", plugin.Prefix)
		return nil
	}

	info(w, "Available plugins:")
	for _, name := range names {
		info(w, "  • %s", name)
	}
	return nil
}
