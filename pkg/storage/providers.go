package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/stackprice/stackprice/pkg/catalog"
)

func (d *DB) UpsertProviders(ctx context.Context, providers []catalog.CloudProvider) (err error) {
	now := d.now()
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, p := range providers {
		services := p.Services
		if services == nil {
			services = []catalog.CloudService{}
		}
		var servicesJSON []byte
		if servicesJSON, err = json.Marshal(services); err != nil {
			return err
		}
		updated := p.LastUpdated
		if updated.IsZero() {
			updated = now
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO providers(id, name, logo, description, website, services, last_updated)
VALUES(?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, logo = excluded.logo, description = excluded.description,
  website = excluded.website, services = excluded.services, last_updated = excluded.last_updated`,
			p.ID, p.Name, nullIfEmpty(p.Logo), nullIfEmpty(p.Description), nullIfEmpty(p.Website), string(servicesJSON), formatTime(updated))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

const providerColumns = "id, name, logo, description, website, services, last_updated"

func (d *DB) ListProviders(ctx context.Context) ([]catalog.CloudProvider, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+providerColumns+" FROM providers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []catalog.CloudProvider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProviders loads providers by id in the order given.
func (d *DB) GetProviders(ctx context.Context, ids []string) (providers []catalog.CloudProvider, missing []string, err error) {
	if len(ids) == 0 {
		return []catalog.CloudProvider{}, nil, nil
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT "+providerColumns+" FROM providers WHERE id IN ("+placeholders(len(ids))+")", stringArgs(ids)...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	byID := make(map[string]catalog.CloudProvider, len(ids))
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, nil, err
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	providers = make([]catalog.CloudProvider, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			providers = append(providers, p)
		} else {
			missing = append(missing, id)
		}
	}
	return providers, missing, nil
}

func scanProvider(row rowScanner) (catalog.CloudProvider, error) {
	var (
		p                   catalog.CloudProvider
		logo, desc, website sql.NullString
		servicesRaw         string
		updated             string
	)
	if err := row.Scan(&p.ID, &p.Name, &logo, &desc, &website, &servicesRaw, &updated); err != nil {
		return catalog.CloudProvider{}, err
	}
	p.Logo = logo.String
	p.Description = desc.String
	p.Website = website.String
	p.LastUpdated = parseTime(updated)
	if err := json.Unmarshal([]byte(servicesRaw), &p.Services); err != nil {
		return catalog.CloudProvider{}, fmt.Errorf("provider %s services: %w", p.ID, err)
	}
	if p.Services == nil {
		p.Services = []catalog.CloudService{}
	}
	return p, nil
}
