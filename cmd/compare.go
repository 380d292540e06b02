package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/compare"
	"github.com/stackprice/stackprice/pkg/dashboard"
)

var compareCmd = &cobra.Command{
	Use:   "compare <tool-id> <tool-id>...",
	Short: "Compare tools side by side",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := utils.UniqueStrings(args)
		remote, _ := cmd.Flags().GetBool("remote")
		if remote {
			return compareRemote(cmd, ids)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tools, missing, err := db.GetTools(cmd.Context(), ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("unknown tools: %s", strings.Join(missing, ", "))
		}
		printComparison(compare.Assemble(tools))
		return nil
	},
}

// compareRemote builds the selection through the API the way the web
// dashboard does and lets the server assemble the comparison.
func compareRemote(cmd *cobra.Command, ids []string) error {
	client, err := newGatewayClient()
	if err != nil {
		return err
	}
	session := dashboard.New(client, "")
	defer session.Close()

	ctx := cmd.Context()
	for _, id := range ids {
		if err := session.AddToolByID(ctx, id); err != nil {
			return err
		}
	}

	res, err := session.Compare(ctx)
	if err != nil {
		return err
	}
	printComparison(res)

	if name, _ := cmd.Flags().GetString("save"); name != "" {
		cmp, err := session.Save(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("Saved as %s\n", cmp.ID)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().Bool("remote", false, "Compare through the API configured in gateway.url")
	compareCmd.Flags().String("save", "", "With --remote, save the comparison under this name")
}
