package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect reconcile run history",
	Long:  "Commands for listing and viewing reconcile runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reconcile runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "reconcile")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "reconcile")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := findRun(ctx, st, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// findRun scans recent runs for an exact id or a unique id prefix.
func findRun(ctx context.Context, st store.Store, id string) (*model.Run, error) {
	runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 1000})
	if err != nil {
		return nil, eris.Wrap(err, "runs show")
	}
	var match *model.Run
	for i := range runs {
		if runs[i].ID == id {
			return &runs[i], nil
		}
		if len(id) >= 4 && len(runs[i].ID) > len(id) && strings.HasPrefix(runs[i].ID, id) {
			if match != nil {
				return nil, eris.Errorf("runs show: id prefix %q is ambiguous", id)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return nil, eris.Wrapf(store.ErrNotFound, "runs show: run %s", id)
	}
	return match, nil
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tMODE\tPROCESSED\tUPDATED\tDEFECTS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t----\t---------\t-------\t-------\t-------\t--------")

	for _, r := range runs {
		dur := "-"
		if r.Status != model.RunStatusRunning {
			dur = r.UpdatedAt.Sub(r.CreatedAt).Round(time.Millisecond).String()
		}
		mode := "apply"
		if r.DryRun {
			mode = "dry-run"
		}
		processed, updated, defects := "-", "-", "-"
		if r.Summary != nil {
			processed = fmt.Sprint(r.Summary.Processed)
			updated = fmt.Sprint(r.Summary.Updated)
			defects = fmt.Sprint(len(r.Summary.Defects))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			mode,
			processed,
			updated,
			defects,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
