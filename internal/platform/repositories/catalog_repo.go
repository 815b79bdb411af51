package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"suitehub/internal/platform/models"
)

// CatalogRepository reads the published app catalog and its price list.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListApps(ctx context.Context) ([]*models.App, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name, description, logo, published FROM apps ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []*models.App{}
	for rows.Next() {
		var app models.App
		if err := rows.Scan(&app.ID, &app.Code, &app.Name, &app.Description, &app.Logo, &app.Published); err != nil {
			return nil, err
		}
		apps = append(apps, &app)
	}
	return apps, rows.Err()
}

func (r *CatalogRepository) ListPricing(ctx context.Context) ([]*models.AppPricing, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT app_code, app_name, description, monthly, yearly, features FROM app_pricing ORDER BY app_code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := []*models.AppPricing{}
	for rows.Next() {
		var p models.AppPricing
		var features string
		if err := rows.Scan(&p.AppCode, &p.AppName, &p.Description, &p.Pricing.Monthly, &p.Pricing.Yearly, &features); err != nil {
			return nil, err
		}
		p.Features = []string{}
		if features != "" {
			if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
				return nil, err
			}
		}
		prices = append(prices, &p)
	}
	return prices, rows.Err()
}

func (r *CatalogRepository) GetPricing(ctx context.Context, appCode string) (*models.AppPricing, error) {
	var p models.AppPricing
	var features string
	err := r.db.QueryRowContext(ctx, `SELECT app_code, app_name, description, monthly, yearly, features FROM app_pricing WHERE app_code = ?`, appCode).
		Scan(&p.AppCode, &p.AppName, &p.Description, &p.Pricing.Monthly, &p.Pricing.Yearly, &features)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
		return nil, err
	}
	return &p, nil
}
