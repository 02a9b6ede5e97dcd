package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sector-intel/format"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Trigger backend pipeline jobs",
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full ingestion and analysis pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newAPIClient().RunPipeline(cmd.Context())
		if err != nil {
			return fmt.Errorf("pipeline failed: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Pipeline completed in %s\n", format.Elapsed(res.ElapsedSeconds))
		fmt.Fprintf(out, "  sectors processed:  %d\n", res.SectorsProcessed)
		fmt.Fprintf(out, "  new articles:       %d\n", res.TotalNewArticles)
		fmt.Fprintf(out, "  signals:            %d\n", res.TotalSignals)
		fmt.Fprintf(out, "  financials updated: %d\n", res.FinancialsUpdated)
		return nil
	},
}

var pipelineFinancialsCmd = &cobra.Command{
	Use:   "financials",
	Short: "Refresh sector ETF financials only",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newAPIClient().RefreshFinancials(cmd.Context())
		if err != nil {
			return fmt.Errorf("financials refresh failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d sectors\n", res.FinancialsUpdated)
		return nil
	},
}

func init() {
	pipelineCmd.AddCommand(pipelineRunCmd, pipelineFinancialsCmd)
}
