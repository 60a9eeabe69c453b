package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/partner-cli/internal/model"
	"github.com/sells-group/partner-cli/internal/reference"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Inspect the reference tables",
	Long:  "Commands for validating, dumping and querying the zone, indicator and known-business tables.",
}

// -- tables validate --

var tablesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the reference tables for defects",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tables, err := reference.Load(cfg.Reference.Path)
		if err != nil {
			return err
		}
		defects := tables.Validate()
		formatTableDefects(cmd.OutOrStdout(), tables, defects)
		if len(defects) > 0 {
			return eris.Errorf("tables: %d defect(s) found", len(defects))
		}
		return nil
	},
}

// -- tables dump --

var tablesDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective reference tables as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tables, err := reference.Load(cfg.Reference.Path)
		if err != nil {
			return err
		}
		out, err := reference.Marshal(tables)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

// -- tables lookup --

var tablesLookupCmd = &cobra.Command{
	Use:   "lookup <name>",
	Short: "Show the known-business entry for a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := reference.Load(cfg.Reference.Path)
		if err != nil {
			return err
		}
		b, ok := tables.Lookup(args[0])
		if !ok {
			return eris.Errorf("tables: no known business named %q", args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	},
}

func init() {
	tablesCmd.AddCommand(tablesValidateCmd)
	tablesCmd.AddCommand(tablesDumpCmd)
	tablesCmd.AddCommand(tablesLookupCmd)
	rootCmd.AddCommand(tablesCmd)
}

func formatTableDefects(out io.Writer, t *reference.Tables, defects []model.Defect) {
	neighborhoods := 0
	for _, z := range t.Zones {
		neighborhoods += len(z.Neighborhoods)
	}
	_, _ = fmt.Fprintf(out, "Zones: %d (%d neighborhoods)\n", len(t.Zones), neighborhoods)
	_, _ = fmt.Fprintf(out, "Online indicators: %d\n", len(t.OnlineIndicators))
	_, _ = fmt.Fprintf(out, "Out-of-area keywords: %d, names: %d\n", len(t.OutOfAreaKeywords), len(t.OutOfAreaNames))
	_, _ = fmt.Fprintf(out, "Known businesses: %d\n", len(t.Businesses))

	if len(defects) == 0 {
		_, _ = fmt.Fprintln(out, "No defects.")
		return
	}
	for _, d := range defects {
		_, _ = fmt.Fprintf(out, "  [%s] %s\n", d.Kind, d.Message)
	}
}
