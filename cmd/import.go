package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/partner-cli/internal/fetcher"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load partners from a CSV, TSV or XLSX file into the store",
	Long: `Reads partner rows from a local file or an http(s) URL and inserts them.
Rows whose id already exists only fill columns that are blank in the store.
Rows without an id get a generated one.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		src, _ := cmd.Flags().GetString("file")
		if src == "" {
			return eris.New("import: --file is required")
		}
		sheet, _ := cmd.Flags().GetString("sheet")

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
		partners, err := fetcher.ReadPartners(ctx, f, src, fetcher.SourceOptions{Sheet: sheet})
		if err != nil {
			return err
		}
		if len(partners) == 0 {
			zap.L().Info("import: no partner rows found", zap.String("source", src))
			return nil
		}

		st, err := openStore(ctx, "import")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.InsertPartners(ctx, partners)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d partner rows from %s\n", n, len(partners), src)
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "path or URL of a .csv, .tsv or .xlsx file")
	importCmd.Flags().String("sheet", "", "XLSX worksheet name (default first sheet)")
	rootCmd.AddCommand(importCmd)
}
