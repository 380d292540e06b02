package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <tool-id>...",
	Short: "Export a comparison as json, csv or html",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if !export.Supported(format) {
			return fmt.Errorf("unsupported format %q, use one of: %s", format, strings.Join(export.Formats, ", "))
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tools, missing, err := db.GetTools(cmd.Context(), utils.UniqueStrings(args))
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("unknown tools: %s", strings.Join(missing, ", "))
		}

		payload, err := export.Render(format, tools)
		if err != nil {
			return err
		}

		if output == "" {
			fmt.Print(payload.Content)
			return nil
		}
		if output == "." {
			output = payload.Filename
		}
		if err := os.WriteFile(output, []byte(payload.Content), 0o644); err != nil {
			return err
		}
		utils.Log.Infof("Wrote %s", output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "json", "Export format: json, csv, html")
	exportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout ('.' uses the default file name)")
}
