package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-marketplace/internal/database"
	"ms-marketplace/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateAd claims the payment reference for the ad and inserts it in one
// transaction.
func (d *DB) CreateAd(ctx context.Context, ad *models.Ad) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := database.ClaimPayment(ctx, tx, ad.Reference, models.ClaimAd); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(ad).Exec(ctx)
		return err
	})
}

// GetAdByID returns nil, nil when no ad matches.
func (d *DB) GetAdByID(ctx context.Context, id string) (*models.Ad, error) {
	return d.getAdBy(ctx, "id", id)
}

func (d *DB) GetAdByReference(ctx context.Context, reference string) (*models.Ad, error) {
	return d.getAdBy(ctx, "reference", reference)
}

func (d *DB) getAdBy(ctx context.Context, column, value string) (*models.Ad, error) {
	var ad models.Ad
	err := d.Bun.NewSelect().
		Model(&ad).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

// ActivateAd flips the flag; activating an active ad is a no-op.
func (d *DB) ActivateAd(ctx context.Context, id string, at time.Time) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Ad)(nil)).
		Set("active = ?", true).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ListAds returns every ad regardless of its active flag.
func (d *DB) ListAds(ctx context.Context) ([]models.Ad, error) {
	ads := make([]models.Ad, 0)
	if err := d.Bun.NewSelect().Model(&ads).Order("created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return ads, nil
}
