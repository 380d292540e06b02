package compare

import (
	"github.com/stackprice/stackprice/pkg/pricing"
)

// FeatureRow tells, for one feature, which tools offer it in any tier.
// Present is indexed like Result.Tools.
type FeatureRow struct {
	Feature string `json:"feature"`
	Present []bool `json:"present"`
}

// Matrix builds the feature presence matrix for a Result.
func Matrix(r Result) []FeatureRow {
	rows := make([]FeatureRow, 0, len(r.Features))
	for _, f := range r.Features {
		row := FeatureRow{Feature: f, Present: make([]bool, len(r.Tools))}
		for i, t := range r.Tools {
			for _, nt := range t.Pricing.Ordered() {
				if nt.Tier.HasFeature(f) {
					row.Present[i] = true
					break
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// PriceRow holds one tier's price for each tool. A nil cell means the tool
// does not offer the tier.
type PriceRow struct {
	Tier  pricing.TierName `json:"tier"`
	Cells []*pricing.Price `json:"cells"`
}

// PriceMatrix lists, for every tier offered by at least one tool, the price
// each tool charges. Rows follow canonical tier order.
func PriceMatrix(r Result) []PriceRow {
	offered := make(map[pricing.TierName]bool)
	var order []pricing.TierName
	merged := pricing.TierSet{}
	for _, t := range r.Tools {
		for _, nt := range t.Pricing.Ordered() {
			if !offered[nt.Name] {
				offered[nt.Name] = true
				merged[nt.Name] = nt.Tier
			}
		}
	}
	for _, nt := range merged.Ordered() {
		order = append(order, nt.Name)
	}

	rows := make([]PriceRow, 0, len(order))
	for _, name := range order {
		row := PriceRow{Tier: name, Cells: make([]*pricing.Price, len(r.Tools))}
		for i, t := range r.Tools {
			if tier := t.Pricing.Get(name); tier != nil {
				p := tier.Price
				row.Cells[i] = &p
			}
		}
		rows = append(rows, row)
	}
	return rows
}
