package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/scranton_spreads/internal/orders"
	"github.com/eddiefleurent/scranton_spreads/internal/report"
)

func newCostCmd(a *app) *cobra.Command {
	var (
		input  string
		live   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Summarize premium received and paid per underlying",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, _, err := a.loadData(cmd, input, live)
			if err != nil {
				return err
			}
			summary := orders.SummarizeCost(data.Records, data.Events)
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			report.WriteCostTable(a.out, summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "order history file (.csv or .json); defaults to source.path")
	cmd.Flags().BoolVar(&live, "live", false, "fetch order history from the broker instead of a file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
