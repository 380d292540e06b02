package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/pricing"
)

// UpsertTools inserts or updates tools in one transaction. Every tier whose
// price appeared, changed or disappeared is recorded in price_history and
// returned.
func (d *DB) UpsertTools(ctx context.Context, tools []catalog.Tool) ([]catalog.PricePoint, error) {
	now := d.now()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var changes []catalog.PricePoint
	for _, t := range tools {
		var existingRaw string
		previous := pricing.TierSet{}
		err = tx.QueryRowContext(ctx, "SELECT pricing FROM tools WHERE id = ?", t.ID).Scan(&existingRaw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			err = nil
		case err != nil:
			return nil, err
		default:
			if previous, err = pricing.ParseTierSet([]byte(existingRaw)); err != nil {
				return nil, fmt.Errorf("stored pricing for %s: %w", t.ID, err)
			}
		}

		var pricingJSON, integrationsJSON []byte
		if pricingJSON, err = json.Marshal(nonNilTiers(t.Pricing)); err != nil {
			return nil, err
		}
		integrations := t.Integrations
		if integrations == nil {
			integrations = []string{}
		}
		if integrationsJSON, err = json.Marshal(integrations); err != nil {
			return nil, err
		}
		domain, _ := catalog.VendorDomain(t.Website)
		updated := t.LastUpdated
		if updated.IsZero() {
			updated = now
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO tools(id, name, logo, description, category, website, vendor_domain, pricing, integrations, last_updated)
VALUES(?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, logo = excluded.logo, description = excluded.description,
  category = excluded.category, website = excluded.website, vendor_domain = excluded.vendor_domain,
  pricing = excluded.pricing, integrations = excluded.integrations, last_updated = excluded.last_updated`,
			t.ID, t.Name, nullIfEmpty(t.Logo), nullIfEmpty(t.Description), t.Category, nullIfEmpty(t.Website),
			nullIfEmpty(domain), string(pricingJSON), string(integrationsJSON), formatTime(updated))
		if err != nil {
			return nil, err
		}

		for _, c := range diffTiers(t.ID, previous, t.Pricing, now) {
			var amount, label interface{}
			if c.Price != nil {
				if v, ok := c.Price.Value(); ok {
					amount = v.String()
				} else {
					label = c.Price.String()
				}
			}
			_, err = tx.ExecContext(ctx, `INSERT INTO price_history(tool_id, tier, price_amount, price_label, change_type, recorded_at) VALUES(?,?,?,?,?,?)`,
				c.ToolID, string(c.Tier), amount, label, c.ChangeType, formatTime(c.RecordedAt))
			if err != nil {
				return nil, err
			}
			changes = append(changes, c)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// diffTiers compares two tier sets, walking tiers in canonical order.
func diffTiers(toolID string, before, after pricing.TierSet, at time.Time) []catalog.PricePoint {
	var out []catalog.PricePoint
	for _, nt := range after.Ordered() {
		price := nt.Tier.Price
		old := before.Get(nt.Name)
		switch {
		case old == nil:
			out = append(out, catalog.PricePoint{ToolID: toolID, Tier: nt.Name, Price: &price, ChangeType: "added", RecordedAt: at})
		case !old.Price.Equal(price):
			out = append(out, catalog.PricePoint{ToolID: toolID, Tier: nt.Name, Price: &price, ChangeType: "updated", RecordedAt: at})
		}
	}
	for _, nt := range before.Ordered() {
		if after.Get(nt.Name) == nil {
			out = append(out, catalog.PricePoint{ToolID: toolID, Tier: nt.Name, ChangeType: "removed", RecordedAt: at})
		}
	}
	return out
}

// nonNilTiers drops "not offered" entries so stored pricing only holds
// real tiers.
func nonNilTiers(set pricing.TierSet) pricing.TierSet {
	out := pricing.TierSet{}
	for name, tier := range set {
		if tier != nil {
			out[name] = tier
		}
	}
	return out
}

// ListOptions controls selection when listing tools.
type ListOptions struct {
	Category     string
	Search       string
	VendorDomain string
}

const toolColumns = "id, name, logo, description, category, website, pricing, integrations, last_updated"

// ListTools returns tools matching filters ordered by category and name.
func (d *DB) ListTools(ctx context.Context, opts ListOptions) ([]catalog.Tool, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.Category != "" && opts.Category != "all" {
		where += " AND category = ?"
		args = append(args, opts.Category)
	}
	if opts.Search != "" {
		where += " AND (name LIKE ? OR description LIKE ?)"
		pattern := fmt.Sprintf("%%%s%%", opts.Search)
		args = append(args, pattern, pattern)
	}
	if opts.VendorDomain != "" {
		where += " AND vendor_domain = ?"
		args = append(args, opts.VendorDomain)
	}

	rows, err := d.sql.QueryContext(ctx, "SELECT "+toolColumns+" FROM tools "+where+" ORDER BY category, name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []catalog.Tool{}
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *DB) GetTool(ctx context.Context, id string) (catalog.Tool, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+toolColumns+" FROM tools WHERE id = ?", id)
	t, err := scanTool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Tool{}, fmt.Errorf("tool %s: %w", id, ErrNotFound)
	}
	return t, err
}

// GetTools loads tools by id, keeping the order of ids. Unknown ids are
// returned in missing.
func (d *DB) GetTools(ctx context.Context, ids []string) (tools []catalog.Tool, missing []string, err error) {
	if len(ids) == 0 {
		return []catalog.Tool{}, nil, nil
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT "+toolColumns+" FROM tools WHERE id IN ("+placeholders(len(ids))+")", stringArgs(ids)...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	byID := make(map[string]catalog.Tool, len(ids))
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, nil, err
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	tools = make([]catalog.Tool, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		tools = append(tools, t)
	}
	return tools, missing, nil
}

// ListCategories returns the distinct tool categories.
func (d *DB) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT DISTINCT category FROM tools ORDER BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTool(row rowScanner) (catalog.Tool, error) {
	var (
		t                           catalog.Tool
		logo, desc, website         sql.NullString
		pricingRaw, integrationsRaw string
		updated                     string
	)
	if err := row.Scan(&t.ID, &t.Name, &logo, &desc, &t.Category, &website, &pricingRaw, &integrationsRaw, &updated); err != nil {
		return catalog.Tool{}, err
	}
	t.Logo = logo.String
	t.Description = desc.String
	t.Website = website.String
	t.LastUpdated = parseTime(updated)

	set, err := pricing.ParseTierSet([]byte(pricingRaw))
	if err != nil {
		return catalog.Tool{}, fmt.Errorf("tool %s pricing: %w", t.ID, err)
	}
	t.Pricing = set
	if err := json.Unmarshal([]byte(integrationsRaw), &t.Integrations); err != nil {
		return catalog.Tool{}, fmt.Errorf("tool %s integrations: %w", t.ID, err)
	}
	if t.Integrations == nil {
		t.Integrations = []string{}
	}
	return t, nil
}
