package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackprice/stackprice/pkg/catalog"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <tool-id>",
	Short: "Ask the configured AI provider for a pricing analysis of a tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		remote, _ := cmd.Flags().GetBool("remote")

		if remote {
			client, err := newGatewayClient()
			if err != nil {
				return err
			}
			tool, err := client.GetTool(ctx, args[0]).Unwrap()
			if err != nil {
				return err
			}
			history, err := client.HistoricalPricing(ctx, []string{tool.ID}).Unwrap()
			if err != nil {
				return err
			}
			text, err := client.PricingAnalysis(ctx, tool, history).Unwrap()
			if err != nil {
				return err
			}
			printAnalysis(tool, text)
			return nil
		}

		analyst, err := newAnalyst()
		if err != nil {
			return err
		}
		if analyst == nil {
			return errors.New("no AI provider configured: set ai.api_key in ~/.stackprice.yaml or OPENAI_API_KEY")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tool, err := db.GetTool(ctx, args[0])
		if err != nil {
			return err
		}
		history, err := db.PriceHistory(ctx, []string{tool.ID})
		if err != nil {
			return err
		}
		text, err := analyst.AnalyzePricing(ctx, tool, history)
		if err != nil {
			return err
		}
		printAnalysis(tool, text)
		return nil
	},
}

func printAnalysis(tool catalog.Tool, text string) {
	fmt.Printf("%s (%s)\n\n%s\n", tool.Name, tool.Category, text)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("remote", false, "Run the analysis through the API configured in gateway.url")
}
