package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/sells-group/partner-cli/internal/model"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Evaluate a single partner without touching the store",
	Long:  "Runs the category rules, zone resolver and enrichment merge on a partner described by flags and prints the decision as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		engine, err := loadEngine()
		if err != nil {
			return err
		}

		flag := func(name string) string {
			v, _ := cmd.Flags().GetString(name)
			return v
		}

		p := model.Partner{
			ID:                  flag("id"),
			Name:                flag("name"),
			Address:             model.String(flag("address")),
			Notes:               model.String(flag("notes")),
			ServicesDescription: model.String(flag("services")),
			ProximityHint:       model.String(flag("proximity")),
		}
		if c := flag("category"); c != "" {
			cat := model.Category(c)
			p.Category = &cat
		}
		if z := flag("area"); z != "" {
			zone := model.Zone(z)
			p.Zone = &zone
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(engine.Evaluate(p))
	},
}

func init() {
	classifyCmd.Flags().String("id", "", "partner id to echo in the result")
	classifyCmd.Flags().String("name", "", "business name")
	classifyCmd.Flags().String("category", "", "current partner_type")
	classifyCmd.Flags().String("area", "", "current area")
	classifyCmd.Flags().String("address", "", "street address")
	classifyCmd.Flags().String("notes", "", "free-text notes")
	classifyCmd.Flags().String("services", "", "services provided")
	classifyCmd.Flags().String("proximity", "", "proximity to location hint")
	_ = classifyCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(classifyCmd)
}
