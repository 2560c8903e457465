package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-marketplace/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateUser → insert new user
func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := d.Bun.NewInsert().Model(user).Exec(ctx)
	return err
}

// GetUserByID returns nil, nil when no user matches.
func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return d.getUserBy(ctx, "id", id)
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.getUserBy(ctx, "email", email)
}

func (d *DB) getUserBy(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindConflict returns the first of username, email, phone already taken by
// another user, or "".
func (d *DB) FindConflict(ctx context.Context, username, email, phone string) (string, error) {
	checks := []struct {
		field string
		value string
	}{
		{"username", username},
		{"email", email},
		{"phone", phone},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		exists, err := d.Bun.NewSelect().
			Model((*models.User)(nil)).
			Where("? = ?", bun.Ident(c.field), c.value).
			Exists(ctx)
		if err != nil {
			return "", err
		}
		if exists {
			return c.field, nil
		}
	}
	return "", nil
}

// PromoteToVendor stores the vendor profile and sets the vendor role in one
// update. Admins keep their role.
func (d *DB) PromoteToVendor(ctx context.Context, id string, profile models.VendorProfile) (*models.User, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("role = CASE WHEN role = ? THEN role ELSE ? END", models.RoleAdmin, models.RoleVendor).
		Set("business_name = ?", nullIfEmpty(profile.BusinessName)).
		Set("business_address = ?", nullIfEmpty(profile.BusinessAddress)).
		Set("business_phone = ?", nullIfEmpty(profile.BusinessPhone)).
		Set("store_description = ?", nullIfEmpty(profile.StoreDescription)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return d.GetUserByID(ctx, id)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ListUsers returns every user, newest first. An empty role means all roles.
func (d *DB) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	users := make([]models.User, 0)
	q := d.Bun.NewSelect().Model(&users).Order("created_at DESC")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return users, nil
}

// ListEmails returns the address of every registered user.
func (d *DB) ListEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Column("email").
		Scan(ctx, &emails)
	return emails, err
}
