package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stackprice/stackprice/pkg/catalog"
	"github.com/stackprice/stackprice/pkg/pricing"
)

// PriceHistory returns the recorded tier prices of the given tools, oldest
// first.
func (d *DB) PriceHistory(ctx context.Context, toolIDs []string) ([]catalog.PricePoint, error) {
	out := []catalog.PricePoint{}
	if len(toolIDs) == 0 {
		return out, nil
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT tool_id, tier, price_amount, price_label, change_type, recorded_at FROM price_history WHERE tool_id IN ("+
		placeholders(len(toolIDs))+") ORDER BY recorded_at, id", stringArgs(toolIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p             catalog.PricePoint
			tier          string
			amount, label sql.NullString
			recorded      string
		)
		if err := rows.Scan(&p.ToolID, &tier, &amount, &label, &p.ChangeType, &recorded); err != nil {
			return nil, err
		}
		p.Tier = pricing.TierName(tier)
		p.RecordedAt = parseTime(recorded)
		switch {
		case amount.Valid:
			v, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("history amount %q: %w", amount.String, err)
			}
			price := pricing.Amount(v)
			p.Price = &price
		case label.Valid:
			price := pricing.Label(label.String)
			p.Price = &price
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateAlert stores a new price alert and returns it with id and creation
// time filled in.
func (d *DB) CreateAlert(ctx context.Context, a catalog.PriceAlert) (catalog.PriceAlert, error) {
	threshold, err := decimal.NewFromString(a.Threshold)
	if err != nil {
		return catalog.PriceAlert{}, fmt.Errorf("alert threshold %q: %w", a.Threshold, err)
	}
	a.ID = uuid.NewString()
	a.Threshold = threshold.String()
	a.CreatedAt = d.now()
	_, err = d.sql.ExecContext(ctx, `INSERT INTO price_alerts(id, user_id, tool_id, tier, threshold, callback_url, created_at) VALUES(?,?,?,?,?,?,?)`,
		a.ID, a.UserID, a.ToolID, string(a.Tier), a.Threshold, a.CallbackURL, formatTime(a.CreatedAt))
	if err != nil {
		return catalog.PriceAlert{}, err
	}
	return a, nil
}

// ListAlerts returns alerts for a user, or all alerts when userID is empty.
func (d *DB) ListAlerts(ctx context.Context, userID string) ([]catalog.PriceAlert, error) {
	q := "SELECT id, user_id, tool_id, tier, threshold, callback_url, created_at FROM price_alerts"
	args := []interface{}{}
	if userID != "" {
		q += " WHERE user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY created_at, id"
	return d.queryAlerts(ctx, q, args...)
}

func (d *DB) DeleteAlert(ctx context.Context, id string) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM price_alerts WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return nil
}

// MatchAlerts returns the alerts whose threshold is met by a recorded price
// change, i.e. a new comparable price at or below the threshold.
func (d *DB) MatchAlerts(ctx context.Context, points []catalog.PricePoint) ([]catalog.PriceAlert, error) {
	var matched []catalog.PriceAlert
	for _, p := range points {
		if p.Price == nil {
			continue
		}
		amount, ok := p.Price.Value()
		if !ok {
			continue
		}
		alerts, err := d.queryAlerts(ctx, "SELECT id, user_id, tool_id, tier, threshold, callback_url, created_at FROM price_alerts WHERE tool_id = ? AND tier = ? ORDER BY created_at, id",
			p.ToolID, string(p.Tier))
		if err != nil {
			return nil, err
		}
		for _, a := range alerts {
			threshold, err := decimal.NewFromString(a.Threshold)
			if err != nil {
				continue
			}
			if amount.LessThanOrEqual(threshold) {
				matched = append(matched, a)
			}
		}
	}
	return matched, nil
}

func (d *DB) queryAlerts(ctx context.Context, q string, args ...interface{}) ([]catalog.PriceAlert, error) {
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []catalog.PriceAlert{}
	for rows.Next() {
		var (
			a       catalog.PriceAlert
			tier    string
			created string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ToolID, &tier, &a.Threshold, &a.CallbackURL, &created); err != nil {
			return nil, err
		}
		a.Tier = pricing.TierName(tier)
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}
