package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/polling"
	"github.com/stackprice/stackprice/pkg/storage"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local tool and provider catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml|url>",
	Short: "Import tools and providers from a YAML catalog file or URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lock, err := utils.NewDBLock(viper.GetString("db.path"))
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		cfg := polling.Config{
			Source: catalogSource(args[0]),
			DB:     db,
			Lock:   lock,
			Log:    utils.Log,
		}
		if notify, _ := cmd.Flags().GetBool("notify"); notify {
			cfg.Notifier = polling.WebhookNotifier{}
		}

		res, err := polling.PollCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		for _, c := range res.Changes {
			utils.Log.Debugf("%s %s %s %s", c.ChangeType, c.ToolID, c.Tier, formatPrice(c.Price))
		}
		for _, a := range res.Alerts {
			utils.Log.WithField("callback", a.CallbackURL).Infof("Price alert %s: %s %s is at or below $%s for user %s", a.ID, a.ToolID, a.Tier, a.Threshold, a.UserID)
		}
		if cfg.Notifier != nil && len(res.Alerts) > 0 {
			utils.Log.Infof("Delivered %d of %d alerts", res.Delivered, len(res.Alerts))
		}
		return nil
	},
}

// catalogSource picks an HTTP source for URLs and a file source otherwise.
func catalogSource(location string) polling.Source {
	if catalog.IsWebURL(location) {
		return polling.HTTPSource{URL: location}
	}
	return polling.FileSource{Path: location}
}

var catalogToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools in the local catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		category, _ := cmd.Flags().GetString("category")
		search, _ := cmd.Flags().GetString("search")
		domain, _ := cmd.Flags().GetString("domain")

		tools, err := db.ListTools(cmd.Context(), storage.ListOptions{Category: category, Search: search, VendorDomain: domain})
		if err != nil {
			return err
		}
		if len(tools) == 0 {
			fmt.Println("No tools found. Import a catalog with 'stackprice catalog import'.")
			return nil
		}
		printTools(tools)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogToolsCmd)

	catalogImportCmd.Flags().Bool("notify", false, "POST matched price alerts to their callback URLs")
	catalogToolsCmd.Flags().String("category", "", "Only list tools in this category")
	catalogToolsCmd.Flags().String("search", "", "Match name or description")
	catalogToolsCmd.Flags().String("domain", "", "Only list tools whose website belongs to this registrable domain")
}
