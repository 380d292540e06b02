package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TierName identifies a pricing level. Tools use free/starter/pro/enterprise,
// cloud services use free/basic/standard/premium/enterprise.
type TierName string

const (
	TierFree       TierName = "free"
	TierStarter    TierName = "starter"
	TierBasic      TierName = "basic"
	TierPro        TierName = "pro"
	TierStandard   TierName = "standard"
	TierPremium    TierName = "premium"
	TierEnterprise TierName = "enterprise"
)

// CanonicalOrder is the order in which tiers are walked when listing prices
// or collecting features.
var CanonicalOrder = []TierName{
	TierFree,
	TierStarter,
	TierBasic,
	TierPro,
	TierStandard,
	TierPremium,
	TierEnterprise,
}

var canonicalRank map[TierName]int

func init() {
	canonicalRank = make(map[TierName]int, len(CanonicalOrder))
	for i, name := range CanonicalOrder {
		canonicalRank[name] = i
	}
}

type Tier struct {
	Price       Price    `json:"price"`
	Features    []string `json:"features"`
	Limitations []string `json:"limitations"`
}

// HasFeature reports whether the tier lists the feature verbatim.
func (t *Tier) HasFeature(feature string) bool {
	if t == nil {
		return false
	}
	for _, f := range t.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// TierSet maps a tier name to its definition. A nil value means the tier
// is not offered.
type TierSet map[TierName]*Tier

// NamedTier pairs a tier with its name.
type NamedTier struct {
	Name TierName
	Tier *Tier
}

// Ordered returns the offered tiers in canonical order. Tier names outside
// the canonical list come last, sorted by name.
func (s TierSet) Ordered() []NamedTier {
	out := make([]NamedTier, 0, len(s))
	var extra []TierName
	for _, name := range CanonicalOrder {
		if tier := s[name]; tier != nil {
			out = append(out, NamedTier{Name: name, Tier: tier})
		}
	}
	for name, tier := range s {
		if _, known := canonicalRank[name]; !known && tier != nil {
			extra = append(extra, name)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, name := range extra {
		out = append(out, NamedTier{Name: name, Tier: s[name]})
	}
	return out
}

// Get returns the named tier or nil when it is not offered.
func (s TierSet) Get(name TierName) *Tier {
	if s == nil {
		return nil
	}
	return s[name]
}

func (s *TierSet) UnmarshalJSON(data []byte) error {
	parsed, err := ParseTierSet(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ResolveTierPrice returns the tier's amount. The boolean is false for a
// missing tier or a non-comparable price.
func ResolveTierPrice(tier *Tier) (decimal.Decimal, bool) {
	if tier == nil {
		return decimal.Zero, false
	}
	return tier.Price.Value()
}

// ListComparablePrices returns every comparable tier price in canonical
// order. The result is empty, never nil-dereferenced, when no tier has a
// numeric price.
func ListComparablePrices(set TierSet) []decimal.Decimal {
	prices := []decimal.Decimal{}
	for _, nt := range set.Ordered() {
		if amount, ok := ResolveTierPrice(nt.Tier); ok {
			prices = append(prices, amount)
		}
	}
	return prices
}

// LowestComparablePrice returns the cheapest comparable tier price.
func LowestComparablePrice(set TierSet) (decimal.Decimal, bool) {
	prices := ListComparablePrices(set)
	if len(prices) == 0 {
		return decimal.Zero, false
	}
	return decimal.Min(prices[0], prices[1:]...), true
}
