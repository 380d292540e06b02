package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stackprice/stackprice/pkg/catalog"
)

// SaveComparison stores a named comparison with a snapshot of the given
// tools, in the order given. Every id must exist.
func (d *DB) SaveComparison(ctx context.Context, name, userID string, toolIDs []string) (catalog.Comparison, error) {
	tools, missing, err := d.GetTools(ctx, toolIDs)
	if err != nil {
		return catalog.Comparison{}, err
	}
	if len(missing) > 0 {
		return catalog.Comparison{}, fmt.Errorf("tools %s: %w", strings.Join(missing, ", "), ErrNotFound)
	}

	c := catalog.Comparison{
		ID:        uuid.NewString(),
		Name:      name,
		UserID:    userID,
		CreatedAt: d.now(),
	}
	for _, t := range tools {
		c.Tools = append(c.Tools, catalog.Snapshot(t))
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return catalog.Comparison{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO comparisons(id, name, user_id, created_at) VALUES(?,?,?,?)`,
		c.ID, c.Name, c.UserID, formatTime(c.CreatedAt)); err != nil {
		return catalog.Comparison{}, err
	}
	for i, snap := range c.Tools {
		if _, err = tx.ExecContext(ctx, `INSERT INTO comparison_tools(comparison_id, position, tool_id, name, logo, category) VALUES(?,?,?,?,?,?)`,
			c.ID, i, snap.ID, snap.Name, nullIfEmpty(snap.Logo), snap.Category); err != nil {
			return catalog.Comparison{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return catalog.Comparison{}, err
	}
	return c, nil
}

func (d *DB) GetComparison(ctx context.Context, id string) (catalog.Comparison, error) {
	var (
		c       catalog.Comparison
		created string
	)
	err := d.sql.QueryRowContext(ctx, "SELECT id, name, user_id, created_at FROM comparisons WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.UserID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Comparison{}, fmt.Errorf("comparison %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return catalog.Comparison{}, err
	}
	c.CreatedAt = parseTime(created)

	snaps, err := d.comparisonTools(ctx, []string{c.ID})
	if err != nil {
		return catalog.Comparison{}, err
	}
	c.Tools = snaps[c.ID]
	if c.Tools == nil {
		c.Tools = []catalog.ComparisonTool{}
	}
	return c, nil
}

// ListComparisons returns saved comparisons, newest first. An empty userID
// lists every user's comparisons.
func (d *DB) ListComparisons(ctx context.Context, userID string) ([]catalog.Comparison, error) {
	q := "SELECT id, name, user_id, created_at FROM comparisons"
	args := []interface{}{}
	if userID != "" {
		q += " WHERE user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY created_at DESC, id"

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []catalog.Comparison{}
	var ids []string
	for rows.Next() {
		var (
			c       catalog.Comparison
			created string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.UserID, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(created)
		out = append(out, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	snaps, err := d.comparisonTools(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Tools = snaps[out[i].ID]
		if out[i].Tools == nil {
			out[i].Tools = []catalog.ComparisonTool{}
		}
	}
	return out, nil
}

func (d *DB) DeleteComparison(ctx context.Context, id string) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM comparisons WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("comparison %s: %w", id, ErrNotFound)
	}
	return nil
}

func (d *DB) comparisonTools(ctx context.Context, comparisonIDs []string) (map[string][]catalog.ComparisonTool, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT comparison_id, tool_id, name, logo, category FROM comparison_tools WHERE comparison_id IN ("+
		placeholders(len(comparisonIDs))+") ORDER BY comparison_id, position", stringArgs(comparisonIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]catalog.ComparisonTool)
	for rows.Next() {
		var (
			cid  string
			snap catalog.ComparisonTool
			logo sql.NullString
		)
		if err := rows.Scan(&cid, &snap.ID, &snap.Name, &logo, &snap.Category); err != nil {
			return nil, err
		}
		snap.Logo = logo.String
		out[cid] = append(out[cid], snap)
	}
	return out, rows.Err()
}
