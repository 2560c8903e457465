// Command migrate applies or rolls back the schema and can seed the first
// admin account.
//
//	migrate up
//	migrate down
//	migrate version
//	migrate seed-admin
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/database/migrations"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	userdb "ms-marketplace/internal/users/db"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.NewLogger("ms-marketplace-migrate")
	defer log.Close()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|version|seed-admin")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	runner := migrations.NewRunner(bunDB, log)
	// Close also closes bunDB.
	defer runner.Close()

	switch os.Args[1] {
	case "up":
		if err := runner.MigrateUp(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
	case "down":
		if err := runner.MigrateDown(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		log.Info("MIGRATE", "✅ All migrations rolled back")
	case "version":
		v, dirty, err := runner.Version()
		if err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		log.Info("MIGRATE", fmt.Sprintf("schema version %d (dirty=%t)", v, dirty))
	case "seed-admin":
		if err := runner.MigrateUp(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		if err := seedAdmin(ctx, &userdb.DB{Bun: bunDB}, log); err != nil {
			log.Fatal("SEED", err.Error())
		}
	default:
		log.Fatal("MIGRATE", fmt.Sprintf("unknown command %q", os.Args[1]))
	}
}

// seedAdmin creates the admin from ADMIN_USERNAME, ADMIN_EMAIL and
// ADMIN_PASSWORD unless that email is already registered.
func seedAdmin(ctx context.Context, users *userdb.DB, log *logger.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	if email == "" || password == "" {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	existing, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("look up admin: %w", err)
	}
	if existing != nil {
		log.Info("SEED", fmt.Sprintf("Admin %s already exists", email))
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	admin := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info("SEED", fmt.Sprintf("✅ Admin %s created", email))
	return nil
}
