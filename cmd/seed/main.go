package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"turnstile/internal/auth"
	"turnstile/internal/events"
	"turnstile/internal/seats"
	"turnstile/internal/seed"
	"turnstile/internal/shared/config"
	"turnstile/internal/shared/constants"
	"turnstile/internal/shared/database"
	"turnstile/pkg/logger"
)

type Seeder struct {
	db  *database.DB
	cfg *config.Config
	log *logger.Logger
}

func main() {
	clean := flag.Bool("clean", true, "truncate catalog tables and admission state before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	cfg.Store.CatalogBackend = config.BackendPostgres
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger := logger.New()
	db, err := database.InitDB(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db, cfg: cfg, log: appLogger.WithComponent("seed")}
	ctx := context.Background()

	if *clean {
		if err := seeder.CleanDatabase(ctx); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}
	}

	if err := seeder.SeedAll(ctx); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("Seeding completed")
}

// CleanDatabase truncates the catalog tables and clears admission state in Redis
func (s *Seeder) CleanDatabase(ctx context.Context) error {
	tables := []string{"payments", "reservations", "seats", "events"}

	tx := s.db.PostgreSQL.WithContext(ctx).Begin()
	for _, table := range tables {
		s.log.Info("Truncating table", "table", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	if s.db.Redis == nil {
		return nil
	}
	patterns := []string{
		constants.KEY_QUEUE + "*",
		constants.KEY_TOKEN + "*",
		constants.KEY_SEAT_LOCK + "*",
		constants.CACHE_PREFIX + ":*",
	}
	for _, pattern := range patterns {
		if err := s.deletePattern(ctx, pattern); err != nil {
			s.log.WithError(err).Warn("Failed to clear redis keys", "pattern", pattern)
		}
	}
	return nil
}

func (s *Seeder) deletePattern(ctx context.Context, pattern string) error {
	iter := s.db.Redis.Scan(ctx, 0, pattern, 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.db.Redis.Del(ctx, keys...).Err()
}

// SeedAll writes the fixture catalog and the bootstrap oauth client
func (s *Seeder) SeedAll(ctx context.Context) error {
	eventRepo := events.NewRepository(s.db.PostgreSQL)
	seatRepo := seats.NewRepository(s.db.PostgreSQL)

	if err := seed.Load(ctx, eventRepo, seatRepo); err != nil {
		return err
	}
	s.log.Info("Catalog seeded", "events", len(seed.Events()), "seats", len(seed.Seats()))

	if s.cfg.Auth.BootstrapClientID == "" {
		return nil
	}
	authService := auth.NewService(auth.NewRepository(s.db.PostgreSQL), auth.ServiceConfig{
		Secret: s.cfg.Auth.JWTSecret,
		Issuer: s.cfg.Auth.Issuer,
	}, s.log)
	return authService.RegisterClient(ctx, &auth.Client{
		ClientID: s.cfg.Auth.BootstrapClientID,
		Name:     "bootstrap",
		Scopes:   strings.ReplaceAll(s.cfg.Auth.BootstrapClientScopes, ",", " "),
		Enabled:  true,
	}, s.cfg.Auth.BootstrapClientSecret)
}
