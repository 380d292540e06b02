package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/stackprice/stackprice/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history <tool-id>...",
	Short: "Show recorded tier price changes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		points, err := db.PriceHistory(cmd.Context(), utils.UniqueStrings(args))
		if err != nil {
			return err
		}
		if len(points) == 0 {
			fmt.Println("No price changes recorded.")
			return nil
		}

		w := newTable()
		fmt.Fprintln(w, "DATE\tTOOL\tTIER\tCHANGE\tPRICE\t")
		for _, p := range points {
			fmt.Fprintf(w, "%s (%s)\t%s\t%s\t%s\t%s\t\n",
				p.RecordedAt.Format("2006-01-02 15:04"), humanize.Time(p.RecordedAt), p.ToolID, p.Tier, p.ChangeType, formatPrice(p.Price))
		}
		w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
