package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/pricing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return db
}

func sampleTools() []catalog.Tool {
	return []catalog.Tool{
		{
			ID: "asana", Name: "Asana", Category: "Project Management", Website: "https://app.asana.com",
			Integrations: []string{"slack"},
			Pricing: pricing.TierSet{
				pricing.TierFree:       {Price: pricing.AmountFloat(0), Features: []string{"Lists"}},
				pricing.TierPro:        {Price: pricing.AmountFloat(10.99), Features: []string{"Timeline"}},
				pricing.TierEnterprise: {Price: pricing.Label("Custom")},
				pricing.TierStarter:    nil,
			},
		},
		{
			ID: "hubspot", Name: "HubSpot", Category: "CRM", Website: "https://www.hubspot.com",
			Pricing: pricing.TierSet{
				pricing.TierStarter: {Price: pricing.AmountFloat(20)},
			},
		},
		{
			ID: "jira", Name: "Jira", Category: "Project Management", Website: "https://www.atlassian.com/software/jira",
			Pricing: pricing.TierSet{
				pricing.TierPro: {Price: pricing.AmountFloat(8.15)},
			},
		},
	}
}

func TestUpsertToolsRecordsHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	changes, err := db.UpsertTools(ctx, sampleTools())
	require.NoError(t, err)
	assert.Len(t, changes, 5, "every offered tier is new on first import")

	updated := sampleTools()[:1]
	updated[0].Pricing = pricing.TierSet{
		pricing.TierFree: {Price: pricing.AmountFloat(0), Features: []string{"Lists"}},
		pricing.TierPro:  {Price: pricing.AmountFloat(12.99), Features: []string{"Timeline"}},
	}
	changes, err = db.UpsertTools(ctx, updated)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, pricing.TierPro, changes[0].Tier)
	assert.Equal(t, "updated", changes[0].ChangeType)
	assert.Equal(t, "12.99", changes[0].Price.String())
	assert.Equal(t, pricing.TierEnterprise, changes[1].Tier)
	assert.Equal(t, "removed", changes[1].ChangeType)
	assert.Nil(t, changes[1].Price)

	// Unchanged prices leave no trace.
	changes, err = db.UpsertTools(ctx, updated)
	require.NoError(t, err)
	assert.Empty(t, changes)

	history, err := db.PriceHistory(ctx, []string{"asana"})
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "added", history[0].ChangeType)
	last := history[len(history)-1]
	assert.Equal(t, "removed", last.ChangeType)
	assert.Nil(t, last.Price)

	var sawLabel bool
	for _, p := range history {
		if p.Tier == pricing.TierEnterprise && p.ChangeType == "added" {
			sawLabel = true
			assert.False(t, p.Price.Comparable())
			assert.Equal(t, "Custom", p.Price.String())
		}
	}
	assert.True(t, sawLabel)
}

func TestToolRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.UpsertTools(ctx, sampleTools())
	require.NoError(t, err)

	asana, err := db.GetTool(ctx, "asana")
	require.NoError(t, err)
	assert.Equal(t, "Asana", asana.Name)
	assert.Equal(t, []string{"slack"}, asana.Integrations)
	assert.False(t, asana.LastUpdated.IsZero())
	pro, ok := pricing.ResolveTierPrice(asana.Pricing.Get(pricing.TierPro))
	require.True(t, ok)
	assert.Equal(t, "10.99", pro.String())
	assert.Nil(t, asana.Pricing.Get(pricing.TierStarter))

	hubspot, err := db.GetTool(ctx, "hubspot")
	require.NoError(t, err)
	assert.Equal(t, []string{}, hubspot.Integrations)

	_, err = db.GetTool(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListTools(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.UpsertTools(ctx, sampleTools())
	require.NoError(t, err)

	all, err := db.ListTools(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "hubspot", all[0].ID, "ordered by category then name")

	pm, err := db.ListTools(ctx, ListOptions{Category: "Project Management"})
	require.NoError(t, err)
	assert.Len(t, pm, 2)

	search, err := db.ListTools(ctx, ListOptions{Search: "jir"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "jira", search[0].ID)

	byDomain, err := db.ListTools(ctx, ListOptions{VendorDomain: "atlassian.com"})
	require.NoError(t, err)
	require.Len(t, byDomain, 1)

	cats, err := db.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CRM", "Project Management"}, cats)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, CategoryStats{Category: "Project Management", ToolCount: 2, VendorCount: 2}, stats[1])
}

func TestCountVendorsAcrossCategories(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	tools := append(sampleTools(), catalog.Tool{
		ID: "jira-sm", Name: "Jira Service Management", Category: "ITSM",
		Website: "https://www.atlassian.com/software/jira/service-management",
	})
	_, err := db.UpsertTools(ctx, tools)
	require.NoError(t, err)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	perCategory := 0
	for _, s := range stats {
		perCategory += s.VendorCount
	}
	assert.Equal(t, 4, perCategory)

	n, err := db.CountVendors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGetToolsKeepsOrderAndReportsMissing(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.UpsertTools(ctx, sampleTools())
	require.NoError(t, err)

	tools, missing, err := db.GetTools(ctx, []string{"jira", "ghost", "asana"})
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "jira", tools[0].ID)
	assert.Equal(t, "asana", tools[1].ID)
	assert.Equal(t, []string{"ghost"}, missing)
}

func TestComparisonLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.UpsertTools(ctx, sampleTools())
	require.NoError(t, err)

	saved, err := db.SaveComparison(ctx, "PM tools", "user-1", []string{"jira", "asana"})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := db.GetComparison(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "PM tools", got.Name)
	require.Len(t, got.Tools, 2)
	assert.Equal(t, "jira", got.Tools[0].ID)
	assert.Equal(t, "asana", got.Tools[1].ID)
	assert.Equal(t, "Project Management", got.Tools[1].Category)
	assert.True(t, got.CreatedAt.Equal(saved.CreatedAt))

	second, err := db.SaveComparison(ctx, "CRM", "user-2", []string{"hubspot"})
	require.NoError(t, err)

	mine, err := db.ListComparisons(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Tools, 2)

	all, err := db.ListComparisons(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	require.NoError(t, db.DeleteComparison(ctx, saved.ID))
	_, err = db.GetComparison(ctx, saved.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(db.DeleteComparison(ctx, saved.ID), ErrNotFound))
}

func TestSaveComparisonUnknownTool(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.SaveComparison(ctx, "x", "", []string{"nope"})
	assert.True(t, errors.Is(err, ErrNotFound))

	all, err := db.ListComparisons(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProviders(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	err := db.UpsertProviders(ctx, []catalog.CloudProvider{
		{ID: "gcp", Name: "Google Cloud", Services: []catalog.CloudService{
			{ID: "gcs", Name: "Cloud Storage", Type: "storage", Pricing: pricing.TierSet{
				pricing.TierStandard: {Price: pricing.AmountFloat(0.02), Features: []string{"Multi-region"}},
			}},
		}},
		{ID: "aws", Name: "AWS"},
	})
	require.NoError(t, err)

	list, err := db.ListProviders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "aws", list[0].ID)
	assert.Equal(t, []catalog.CloudService{}, list[0].Services)

	got, missing, err := db.GetProviders(ctx, []string{"gcp", "azure"})
	require.NoError(t, err)
	assert.Equal(t, []string{"azure"}, missing)
	require.Len(t, got, 1)
	require.Len(t, got[0].Services, 1)
	std, ok := pricing.ResolveTierPrice(got[0].Services[0].Pricing.Get(pricing.TierStandard))
	require.True(t, ok)
	assert.Equal(t, "0.02", std.String())
}

func TestAlerts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := db.UpsertTools(ctx, sampleTools())
	require.NoError(t, err)

	alert, err := db.CreateAlert(ctx, catalog.PriceAlert{
		UserID: "u1", ToolID: "asana", Tier: pricing.TierPro, Threshold: "10.00", CallbackURL: "https://hooks.example.com/a",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, "10", alert.Threshold)

	_, err = db.CreateAlert(ctx, catalog.PriceAlert{UserID: "u1", ToolID: "asana", Tier: pricing.TierPro, Threshold: "ten"})
	assert.Error(t, err)

	list, err := db.ListAlerts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	drop := sampleTools()[:1]
	drop[0].Pricing[pricing.TierPro] = &pricing.Tier{Price: pricing.AmountFloat(9.5)}
	changes, err := db.UpsertTools(ctx, drop)
	require.NoError(t, err)

	matched, err := db.MatchAlerts(ctx, changes)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, alert.ID, matched[0].ID)

	require.NoError(t, db.DeleteAlert(ctx, alert.ID))
	assert.True(t, errors.Is(db.DeleteAlert(ctx, alert.ID), ErrNotFound))
}
