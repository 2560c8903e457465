package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-marketplace/internal/config"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

const (
	connectRetries = 5
	retryDelay     = 2 * time.Second
)

// Connect opens Postgres through lib/pq and wraps it in bun, retrying while
// the database comes up.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		err   error
	)

	for i := 0; i < connectRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, connectRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN())
		if err == nil {
			err = sqldb.PingContext(ctx)
		}
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if sqldb != nil {
			sqldb.Close()
		}
		if i < connectRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres after %d attempts: %w", connectRetries, err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// ConnectRedis pings Redis before handing the client back.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client, nil
}

// IsUniqueViolation reports whether err came from a unique constraint, on
// Postgres or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// UniqueViolationField returns the column named by a unique violation, or ""
// when it cannot be determined.
func UniqueViolationField(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// users_email_key -> email
		name := strings.TrimSuffix(pqErr.Constraint, "_key")
		if i := strings.Index(name, "_"); i >= 0 {
			return name[i+1:]
		}
		return name
	}
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
		col := msg[i+len("UNIQUE constraint failed: "):]
		if j := strings.IndexAny(col, ", )"); j >= 0 {
			col = col[:j]
		}
		if k := strings.LastIndex(col, "."); k >= 0 {
			col = col[k+1:]
		}
		return col
	}
	return ""
}

// ClaimPayment records reference as spent on kind. It fails with a unique
// violation when any order or ad already holds the reference. Run it in the
// same transaction as the insert it guards.
func ClaimPayment(ctx context.Context, db bun.IDB, reference string, kind models.ClaimKind) error {
	claim := &models.PaymentClaim{Reference: reference, Kind: kind, ClaimedAt: time.Now().UTC()}
	_, err := db.NewInsert().Model(claim).Exec(ctx)
	return err
}

// IsNotFound maps bun's empty result onto a bool.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// CreateSchema builds every table from the bun models. Used for sqlite in
// tests and for local bootstrapping; production schema comes from migrations.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Product)(nil),
		(*models.Order)(nil),
		(*models.Ad)(nil),
		(*models.PaymentClaim)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		model  interface{}
		name   string
		column string
	}{
		{(*models.Order)(nil), "orders_buyer_id_idx", "buyer_id"},
		{(*models.Order)(nil), "orders_vendor_id_idx", "vendor_id"},
		{(*models.Product)(nil), "products_vendor_id_idx", "vendor_id"},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.column).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
