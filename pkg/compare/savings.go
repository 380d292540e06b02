package compare

import (
	"github.com/shopspring/decimal"

	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/pricing"
)

// SavingsRate is the share of the combined pro-tier spend shown as
// potential savings.
var SavingsRate = decimal.RequireFromString("0.15")

// EstimateSavings returns 15% of the summed pro-tier prices. A missing or
// non-comparable pro price counts as zero. Fewer than two tools yield zero.
func EstimateSavings(tools []catalog.Tool) decimal.Decimal {
	if len(tools) < 2 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, t := range tools {
		if amount, ok := pricing.ResolveTierPrice(t.Pricing.Get(pricing.TierPro)); ok {
			total = total.Add(amount)
		}
	}
	return total.Mul(SavingsRate)
}
