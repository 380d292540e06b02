package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/stackprice/stackprice/internal/utils"
	"github.com/stackprice/stackprice/pkg/ai"
	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/compare"
	"github.com/stackprice/stackprice/pkg/gateway"
	"github.com/stackprice/stackprice/pkg/pricing"
	"github.com/stackprice/stackprice/pkg/storage"
)

// openDB opens the configured database, creating its directory if needed.
func openDB() (*storage.DB, error) {
	path, err := utils.GetAbsDBPath(viper.GetString("db.path"))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create database directory: %w", err)
	}
	utils.Log.Debugf("Using database %s", path)
	return storage.Open(path)
}

func newGatewayClient() (*gateway.Client, error) {
	return gateway.New(gateway.Config{
		BaseURL:  viper.GetString("gateway.url"),
		Username: viper.GetString("gateway.user"),
		Password: viper.GetString("gateway.password"),
	})
}

// newAnalyst returns nil when no API key is configured.
func newAnalyst() (ai.Analyst, error) {
	key := viper.GetString("ai.api_key")
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, nil
	}
	return ai.NewAnalyst(ai.Config{
		Provider: viper.GetString("ai.provider"),
		APIKey:   key,
		Model:    viper.GetString("ai.model"),
		Endpoint: viper.GetString("ai.endpoint"),
	})
}

func formatMoney(d decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

func formatPrice(p *pricing.Price) string {
	if p == nil {
		return "-"
	}
	if v, ok := p.Value(); ok {
		return formatMoney(v)
	}
	return p.String()
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
}

func printTools(tools []catalog.Tool) {
	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tFROM\tTIERS\t")
	for _, t := range tools {
		from := "-"
		if low, ok := pricing.LowestComparablePrice(t.Pricing); ok {
			from = formatMoney(low)
		}
		var tiers []string
		for _, nt := range t.Pricing.Ordered() {
			tiers = append(tiers, string(nt.Name))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", t.ID, t.Name, t.Category, from, strings.Join(tiers, ","))
	}
	w.Flush()
}

// printComparison prints the price matrix, the feature matrix and the
// savings estimate of res.
func printComparison(res compare.Result) {
	w := newTable()
	header := "TIER\t"
	for _, t := range res.Tools {
		header += t.Name + "\t"
	}
	fmt.Fprintln(w, header)
	for _, row := range compare.PriceMatrix(res) {
		line := string(row.Tier) + "\t"
		for _, cell := range row.Cells {
			line += formatPrice(cell) + "\t"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "\t")
	for _, row := range compare.Matrix(res) {
		line := row.Feature + "\t"
		for _, present := range row.Present {
			if present {
				line += "yes\t"
			} else {
				line += "-\t"
			}
		}
		fmt.Fprintln(w, line)
	}
	w.Flush()

	if !res.Complete() {
		fmt.Println("\nSelect at least 2 tools for a full comparison.")
		return
	}
	fmt.Printf("\nEstimated savings: %s/mo\n", formatMoney(compare.EstimateSavings(res.Tools)))
}
