package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/catalog"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved comparisons",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved comparisons, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		user, _ := cmd.Flags().GetString("user")
		comparisons, err := db.ListComparisons(cmd.Context(), user)
		if err != nil {
			return err
		}
		if len(comparisons) == 0 {
			fmt.Println("No saved comparisons.")
			return nil
		}

		w := newTable()
		fmt.Fprintln(w, "ID\tNAME\tTOOLS\tCREATED\t")
		for _, c := range comparisons {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", c.ID, c.Name, comparisonToolNames(c), humanize.Time(c.CreatedAt))
		}
		w.Flush()
		return nil
	},
}

var savedGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a saved comparison with current pricing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c, err := db.GetComparison(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (saved %s)\n\n", c.Name, humanize.Time(c.CreatedAt))

		ids := make([]string, 0, len(c.Tools))
		for _, t := range c.Tools {
			ids = append(ids, t.ID)
		}
		tools, missing, err := db.GetTools(cmd.Context(), ids)
		if err != nil {
			return err
		}
		for _, id := range missing {
			utils.Log.Warnf("Tool %s is no longer in the catalog", id)
		}
		printTools(tools)
		return nil
	},
}

var savedSaveCmd = &cobra.Command{
	Use:   "save <name> <tool-id>...",
	Short: "Save a named comparison",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		name := strings.TrimSpace(args[0])
		if name == "" {
			return fmt.Errorf("comparison name must not be empty")
		}
		user, _ := cmd.Flags().GetString("user")
		c, err := db.SaveComparison(cmd.Context(), name, user, utils.UniqueStrings(args[1:]))
		if err != nil {
			return err
		}
		fmt.Println(c.ID)
		return nil
	},
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved comparison",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteComparison(cmd.Context(), args[0]); err != nil {
			return err
		}
		utils.Log.Infof("Deleted comparison %s", args[0])
		return nil
	},
}

func comparisonToolNames(c catalog.Comparison) string {
	names := make([]string, 0, len(c.Tools))
	for _, t := range c.Tools {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(savedCmd)
	savedCmd.AddCommand(savedListCmd, savedGetCmd, savedSaveCmd, savedDeleteCmd)
	savedListCmd.Flags().String("user", "", "Only list comparisons of this user")
	savedSaveCmd.Flags().String("user", "", "Owner of the comparison")
}
