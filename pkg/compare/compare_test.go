package compare

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/pricing"
)

func tool(id string, pro pricing.Price, features ...string) catalog.Tool {
	return catalog.Tool{
		ID:       id,
		Name:     id,
		Category: "Project Management",
		Pricing: pricing.TierSet{
			pricing.TierPro: {Price: pro, Features: features},
		},
	}
}

func TestAssembleFeatureUnionKeepsFirstSeenOrder(t *testing.T) {
	a := tool("a", pricing.AmountFloat(10), "X", "Y")
	b := tool("b", pricing.AmountFloat(20), "Y", "Z")

	res := Assemble([]catalog.Tool{a, b})
	assert.Equal(t, []string{"X", "Y", "Z"}, res.Features)
	assert.Len(t, res.Tools, 2)
	assert.True(t, res.Complete())
}

func TestAssembleWalksTiersInCanonicalOrder(t *testing.T) {
	a := catalog.Tool{
		ID: "a",
		Pricing: pricing.TierSet{
			pricing.TierEnterprise: {Price: pricing.Label("Custom"), Features: []string{"SSO", "Audit log"}},
			pricing.TierFree:       {Price: pricing.AmountFloat(0), Features: []string{"Boards"}},
			pricing.TierStarter:    nil,
			pricing.TierPro:        {Price: pricing.AmountFloat(8), Features: []string{"Boards", "Timeline"}},
		},
	}
	res := Assemble([]catalog.Tool{a})
	assert.Equal(t, []string{"Boards", "Timeline", "SSO", "Audit log"}, res.Features)
	assert.False(t, res.Complete())
}

func TestAssembleEmptySelection(t *testing.T) {
	res := Assemble(nil)
	assert.Empty(t, res.Tools)
	assert.NotNil(t, res.Features)
	assert.Empty(t, res.Features)
}

func TestAssembleIsDeterministic(t *testing.T) {
	tools := []catalog.Tool{
		tool("a", pricing.AmountFloat(1), "1", "2", "3"),
		tool("b", pricing.AmountFloat(1), "3", "4"),
		tool("c", pricing.AmountFloat(1), "5", "1"),
	}
	first := Assemble(tools)
	for i := 0; i < 20; i++ {
		require.Equal(t, first.Features, Assemble(tools).Features)
	}
}

func TestEstimateSavings(t *testing.T) {
	tests := []struct {
		name  string
		tools []catalog.Tool
		want  string
	}{
		{"no tools", nil, "0"},
		{"one tool", []catalog.Tool{tool("a", pricing.AmountFloat(100))}, "0"},
		{
			"custom pro price counts as zero",
			[]catalog.Tool{tool("a", pricing.AmountFloat(100)), tool("b", pricing.Label("Custom"))},
			"15",
		},
		{
			"two priced tools",
			[]catalog.Tool{tool("a", pricing.AmountFloat(49)), tool("b", pricing.AmountFloat(29))},
			"11.7",
		},
		{
			"missing pro tier counts as zero",
			[]catalog.Tool{
				tool("a", pricing.AmountFloat(10)),
				{ID: "b", Pricing: pricing.TierSet{pricing.TierFree: {Price: pricing.AmountFloat(0)}}},
			},
			"1.5",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateSavings(tc.tools)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s want %s", got, tc.want)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestAssembleTwoToolsWithSavings(t *testing.T) {
	tools := []catalog.Tool{tool("toolA", pricing.AmountFloat(49)), tool("toolB", pricing.AmountFloat(29))}
	res := Assemble(tools)
	require.Len(t, res.Tools, 2)
	assert.Equal(t, "11.7", EstimateSavings(res.Tools).String())
}

func TestMatrix(t *testing.T) {
	a := tool("a", pricing.AmountFloat(10), "X", "Y")
	b := tool("b", pricing.Label("Custom"), "Y", "Z")
	rows := Matrix(Assemble([]catalog.Tool{a, b}))
	require.Len(t, rows, 3)
	assert.Equal(t, FeatureRow{Feature: "X", Present: []bool{true, false}}, rows[0])
	assert.Equal(t, FeatureRow{Feature: "Y", Present: []bool{true, true}}, rows[1])
	assert.Equal(t, FeatureRow{Feature: "Z", Present: []bool{false, true}}, rows[2])
}

func TestPriceMatrix(t *testing.T) {
	a := catalog.Tool{ID: "a", Pricing: pricing.TierSet{
		pricing.TierFree: {Price: pricing.AmountFloat(0)},
		pricing.TierPro:  {Price: pricing.AmountFloat(12)},
	}}
	b := catalog.Tool{ID: "b", Pricing: pricing.TierSet{
		pricing.TierPro:        {Price: pricing.AmountFloat(15)},
		pricing.TierEnterprise: {Price: pricing.Label("Custom")},
	}}
	rows := PriceMatrix(Assemble([]catalog.Tool{a, b}))
	require.Len(t, rows, 3)

	assert.Equal(t, pricing.TierFree, rows[0].Tier)
	assert.Nil(t, rows[0].Cells[1])
	assert.Equal(t, pricing.TierPro, rows[1].Tier)
	assert.Equal(t, "12", rows[1].Cells[0].String())
	assert.Equal(t, "15", rows[1].Cells[1].String())
	assert.Equal(t, pricing.TierEnterprise, rows[2].Tier)
	assert.Nil(t, rows[2].Cells[0])
	assert.Equal(t, "Custom", rows[2].Cells[1].String())
}

func TestGroupByCategory(t *testing.T) {
	tools := []catalog.Tool{
		{ID: "jira", Category: "PM"},
		{ID: "hubspot", Category: "CRM"},
		{ID: "asana", Category: "PM"},
	}
	groups := GroupByCategory(tools)
	require.Len(t, groups, 2)
	assert.Equal(t, "PM", groups[0].Category)
	assert.Len(t, groups[0].Tools, 2)
	assert.Equal(t, "CRM", groups[1].Category)
}

func TestAssembleProviders(t *testing.T) {
	aws := catalog.CloudProvider{ID: "aws", Services: []catalog.CloudService{
		{ID: "s3", Pricing: pricing.TierSet{pricing.TierBasic: {Features: []string{"Object storage", "Versioning"}}}},
	}}
	gcp := catalog.CloudProvider{ID: "gcp", Services: []catalog.CloudService{
		{ID: "gcs", Pricing: pricing.TierSet{pricing.TierStandard: {Features: []string{"Versioning", "Lifecycle rules"}}}},
	}}
	res := AssembleProviders([]catalog.CloudProvider{aws, gcp})
	assert.Equal(t, []string{"Object storage", "Versioning", "Lifecycle rules"}, res.Features)
	assert.Len(t, res.Providers, 2)
}
