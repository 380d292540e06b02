package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stackprice/stackprice/internal/server"
	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/polling"
	"github.com/stackprice/stackprice/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the comparison REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		srv := server.New(db, viper.GetString("server.username"), viper.GetString("server.password"))

		analyst, err := newAnalyst()
		if err != nil {
			return err
		}
		if analyst == nil {
			utils.Log.Info("Pricing analysis disabled: ai.api_key not set.")
		} else {
			srv.Analyst = analyst
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if source, _ := cmd.Flags().GetString("poll-source"); source != "" {
			interval, _ := cmd.Flags().GetDuration("poll-interval")
			lock, err := utils.NewDBLock(viper.GetString("db.path"))
			if err != nil {
				return err
			}
			poller, err := newPoller(catalogSource(source), db, lock, interval)
			if err != nil {
				return err
			}
			go poller(ctx)
		}

		return srv.Start(ctx, viper.GetString("server.listen"))
	},
}

// newPoller checks the interval up front so a bad --poll-interval fails the
// command instead of the background goroutine.
func newPoller(source polling.Source, db *storage.DB, lock polling.Locker, interval time.Duration) (func(context.Context), error) {
	if interval <= 0 {
		return nil, fmt.Errorf("--poll-interval must be positive, got %s", interval)
	}
	cfg := polling.Config{
		Source:   source,
		DB:       db,
		Lock:     lock,
		Notifier: polling.WebhookNotifier{},
		Log:      utils.Log,
	}
	return func(ctx context.Context) {
		if err := polling.Run(ctx, cfg, interval); err != nil {
			utils.Log.Errorf("Catalog polling stopped: %v", err)
		}
	}, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("username", "", "Basic auth username for /api")
	serveCmd.Flags().String("password", "", "Basic auth password for /api")
	serveCmd.Flags().String("poll-source", "", "Catalog file or URL to re-import periodically")
	serveCmd.Flags().Duration("poll-interval", 6*time.Hour, "Time between catalog polls")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("server.username", serveCmd.Flags().Lookup("username"))
	viper.BindPFlag("server.password", serveCmd.Flags().Lookup("password"))
}
