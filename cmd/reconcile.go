package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/partner-cli/internal/config"
	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/monitoring"
	"github.com/sells-group/partner-cli/internal/reconcile"
	"github.com/sells-group/partner-cli/internal/store"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Classify, zone and enrich every partner in the store",
	Long: `Evaluates each partner against the reference tables and writes the
category, zone and any missing contact fields back to the store. Zones and
contact fields are only written while blank, so repeated runs are no-ops.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyReconcileFlags(cmd)

		engine, err := loadEngine()
		if err != nil {
			return err
		}
		st, err := openStore(ctx, "reconcile")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		verbose, _ := cmd.Flags().GetBool("verbose")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		opts := reconcile.Options{
			DryRun:      cfg.Reconcile.DryRun,
			OnlyUnzoned: cfg.Reconcile.OnlyUnzoned,
			Concurrency: cfg.Reconcile.Concurrency,
			Limit:       limit,
		}
		if verbose {
			out := cmd.OutOrStdout()
			opts.OnResult = func(p model.Partner, res reconcile.Result, applyErr error) {
				printResultLine(out, p, res, applyErr)
			}
		}

		summary, err := reconcile.NewDriver(st, engine).Run(ctx, opts)
		if !opts.DryRun {
			checkRunHealth(ctx, st, cfg.Monitoring)
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		formatSummary(cmd.OutOrStdout(), summary, opts.DryRun)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().Bool("dry-run", false, "evaluate every partner but write nothing")
	reconcileCmd.Flags().Bool("only-unzoned", false, "only process partners with no area")
	reconcileCmd.Flags().Int("concurrency", 0, "parallel workers (default from config)")
	reconcileCmd.Flags().Int("limit", 0, "max number of partners to process (0 = all)")
	reconcileCmd.Flags().BoolP("verbose", "v", false, "print one line per partner")
	reconcileCmd.Flags().Bool("json", false, "print the run summary as JSON")
	rootCmd.AddCommand(reconcileCmd)
}

// checkRunHealth sends run health alerts once a run has been recorded.
// It is a no-op without a webhook.
func checkRunHealth(ctx context.Context, st store.Store, mcfg config.MonitoringConfig) []monitoring.Alert {
	if mcfg.WebhookURL == "" {
		return nil
	}
	checker := monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(mcfg), mcfg)
	return checker.Check(context.WithoutCancel(ctx))
}

// applyReconcileFlags overrides config values with flags the user set.
func applyReconcileFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("dry-run") {
		cfg.Reconcile.DryRun, _ = cmd.Flags().GetBool("dry-run")
	}
	if cmd.Flags().Changed("only-unzoned") {
		cfg.Reconcile.OnlyUnzoned, _ = cmd.Flags().GetBool("only-unzoned")
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Reconcile.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
}

func printResultLine(out io.Writer, p model.Partner, res reconcile.Result, applyErr error) {
	switch {
	case applyErr != nil:
		_, _ = fmt.Fprintf(out, "FAIL  %s  %s: %v\n", p.ID, p.Name, applyErr)
	case len(res.Defects) > 0:
		_, _ = fmt.Fprintf(out, "SKIP  %s  %s: %s\n", p.ID, p.Name, res.Defects[0].Message)
	case res.Patch.Empty():
		_, _ = fmt.Fprintf(out, "OK    %s  %s\n", p.ID, p.Name)
	default:
		var fields []string
		for _, e := range res.Patch.Entries() {
			fields = append(fields, fmt.Sprintf("%s=%q", e.Field, e.Value))
		}
		_, _ = fmt.Fprintf(out, "SET   %s  %s: %s\n", p.ID, p.Name, strings.Join(fields, " "))
	}
}

// formatSummary writes a human-readable run summary to out.
func formatSummary(out io.Writer, s *model.RunSummary, dryRun bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if dryRun {
		_, _ = fmt.Fprintln(w, "DRY RUN: no changes written")
	}
	_, _ = fmt.Fprintf(w, "Processed:\t%d\n", s.Processed)
	_, _ = fmt.Fprintf(w, "Updated:\t%d\n", s.Updated)
	_, _ = fmt.Fprintf(w, "  Recategorized:\t%d\n", s.Recategorized)
	_, _ = fmt.Fprintf(w, "  Zones assigned:\t%d\n", s.ZonesAssigned)
	_, _ = fmt.Fprintf(w, "  Fields enriched:\t%d\n", s.FieldsEnriched)
	_, _ = fmt.Fprintf(w, "Unchanged:\t%d\n", s.Unchanged)
	_, _ = fmt.Fprintf(w, "Skipped:\t%d\n", s.Skipped)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Still unzoned:\t%d\n", len(s.Unzoned))
	_ = w.Flush()

	if len(s.Defects) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Defects:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, d := range s.Defects {
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", d.PartnerID, d.Kind, d.Message)
	}
	_ = w.Flush()
}
