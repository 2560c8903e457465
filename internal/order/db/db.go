package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-marketplace/internal/database"
	"ms-marketplace/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

// CreateOrder → claim the payment reference and insert the order in one
// transaction. A reference already spent on an order or an ad fails with a
// unique violation.
func (d *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := database.ClaimPayment(ctx, tx, order.Reference, models.ClaimOrder); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(order).Exec(ctx)
		return err
	})
}

// GetOrderByID → fetch one order by its ID, nil when absent
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return d.getOrderBy(ctx, "id", id)
}

// GetOrderByReference → fetch the order settled for a payment reference
func (d *DB) GetOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	return d.getOrderBy(ctx, "reference", reference)
}

func (d *DB) getOrderBy(ctx context.Context, column, value string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	return d.listOrders(ctx, "buyer_id", buyerID)
}

func (d *DB) ListOrdersByVendor(ctx context.Context, vendorID string) ([]models.Order, error) {
	return d.listOrders(ctx, "vendor_id", vendorID)
}

// ListAllOrders is the admin view of every transaction.
func (d *DB) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return d.listOrders(ctx, "", "")
}

func (d *DB) listOrders(ctx context.Context, column, value string) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	q := d.Bun.NewSelect().Model(&orders).Order("created_at DESC")
	if column != "" {
		q = q.Where("? = ?", bun.Ident(column), value)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return orders, nil
}
