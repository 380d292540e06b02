// Package compare derives comparison views and savings estimates from
// already fetched catalog data. Nothing here performs I/O.
package compare

import (
	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/pricing"
)

// Result lists the compared tools and the union of their features.
type Result struct {
	Tools    []catalog.Tool `json:"tools"`
	Features []string       `json:"features"`
}

// Complete reports whether there are enough tools for a meaningful
// comparison.
func (r Result) Complete() bool {
	return len(r.Tools) >= 2
}

// Assemble builds a Result. Features are de-duplicated and keep first-seen
// order: tools in the given order, tiers in canonical order, features as
// listed.
func Assemble(tools []catalog.Tool) Result {
	sets := make([]pricing.TierSet, 0, len(tools))
	for _, t := range tools {
		sets = append(sets, t.Pricing)
	}
	return Result{
		Tools:    append([]catalog.Tool{}, tools...),
		Features: featureUnion(sets),
	}
}

// ProviderResult is the cloud provider counterpart of Result.
type ProviderResult struct {
	Providers []catalog.CloudProvider `json:"providers"`
	Features  []string                `json:"features"`
}

// AssembleProviders collects the features of every service of every
// provider, in the same first-seen order as Assemble.
func AssembleProviders(providers []catalog.CloudProvider) ProviderResult {
	var sets []pricing.TierSet
	for _, p := range providers {
		for _, svc := range p.Services {
			sets = append(sets, svc.Pricing)
		}
	}
	return ProviderResult{
		Providers: append([]catalog.CloudProvider{}, providers...),
		Features:  featureUnion(sets),
	}
}

func featureUnion(sets []pricing.TierSet) []string {
	features := []string{}
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, nt := range set.Ordered() {
			for _, f := range nt.Tier.Features {
				if _, dup := seen[f]; dup {
					continue
				}
				seen[f] = struct{}{}
				features = append(features, f)
			}
		}
	}
	return features
}

// CategoryGroup holds the tools of one category.
type CategoryGroup struct {
	Category string         `json:"category"`
	Tools    []catalog.Tool `json:"tools"`
}

// GroupByCategory groups tools by category, groups ordered by the first
// tool seen in each.
func GroupByCategory(tools []catalog.Tool) []CategoryGroup {
	var groups []CategoryGroup
	index := make(map[string]int)
	for _, t := range tools {
		i, ok := index[t.Category]
		if !ok {
			i = len(groups)
			index[t.Category] = i
			groups = append(groups, CategoryGroup{Category: t.Category})
		}
		groups[i].Tools = append(groups[i].Tools, t)
	}
	return groups
}
