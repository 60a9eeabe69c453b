package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/partner-cli/internal/reconcile"
	"github.com/sells-group/partner-cli/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show partner counts by category and zone",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "reconcile")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		partners, err := st.ListPartners(ctx, store.PartnerFilter{})
		if err != nil {
			return eris.Wrap(err, "report")
		}
		d := reconcile.Distribute(partners)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		}
		formatDistribution(cmd.OutOrStdout(), d)
		return nil
	},
}

func init() {
	reportCmd.Flags().Bool("json", false, "print the distribution as JSON")
	rootCmd.AddCommand(reportCmd)
}

// formatDistribution writes category and zone counts with percentages.
func formatDistribution(out io.Writer, d reconcile.Distribution) {
	_, _ = fmt.Fprintf(out, "Partners: %d\n", d.Total)
	section := func(title string, counts []reconcile.Count) {
		_, _ = fmt.Fprintf(out, "\n%s\n", title)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range counts {
			pct := 0.0
			if d.Total > 0 {
				pct = 100 * float64(c.Count) / float64(d.Total)
			}
			_, _ = fmt.Fprintf(w, "  %s\t%d\t%.1f%%\n", c.Label, c.Count, pct)
		}
		_ = w.Flush()
	}
	section("By category:", d.Categories)
	section("By zone:", d.Zones)
}
