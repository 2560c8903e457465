package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-marketplace/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateProduct(ctx context.Context, p *models.Product) error {
	_, err := d.Bun.NewInsert().Model(p).Exec(ctx)
	return err
}

// GetProductByID returns nil, nil when no product matches.
func (d *DB) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := d.Bun.NewSelect().
		Model(&p).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns products newest first, optionally for one vendor.
func (d *DB) ListProducts(ctx context.Context, vendorID string) ([]models.Product, error) {
	products := make([]models.Product, 0)
	q := d.Bun.NewSelect().Model(&products).Order("created_at DESC")
	if vendorID != "" {
		q = q.Where("vendor_id = ?", vendorID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateProduct → update allowed fields
func (d *DB) UpdateProduct(ctx context.Context, p *models.Product) error {
	_, err := d.Bun.NewUpdate().
		Model(p).
		Column("name", "description", "image_urls", "price", "category", "location", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) DeleteProduct(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Product)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
