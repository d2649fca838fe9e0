package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"queuedesk/internal/shared/config"
	"queuedesk/internal/shared/database"
	"queuedesk/internal/users"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting QueueDesk Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Staff accounts are ready.")
}

// CleanDatabase truncates all tables
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"tickets",
		"daily_counters",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	if err := s.SeedStaffAccounts(); err != nil {
		return fmt.Errorf("failed to seed staff accounts: %w", err)
	}

	// Clear Redis so the display board starts from a fresh state
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}

	return nil
}

// SeedStaffAccounts creates the superadmin plus one console account per office
func (s *Seeder) SeedStaffAccounts() error {
	fmt.Println("  👤 Seeding staff accounts...")

	// Default password for every seeded account (change on first login)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("queuedesk"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	accounts := []struct {
		name     string
		username string
		role     users.Role
	}{
		{"System Administrator", "superadmin", users.RoleSuperadmin},
	}

	for _, role := range users.OfficeRoles() {
		username := strings.ToLower(role.String())
		accounts = append(accounts, struct {
			name     string
			username string
			role     users.Role
		}{
			name:     titleCase(strings.ReplaceAll(username, "_", " ")) + " Desk",
			username: username,
			role:     role,
		})
	}

	for _, account := range accounts {
		user := users.User{
			ID:        uuid.New(),
			Name:      account.name,
			Username:  account.username,
			Password:  string(hashedPassword),
			Role:      account.role,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user %s: %w", account.username, err)
		}

		fmt.Printf("    ✅ Created staff account: %s (%s)\n", user.Username, user.Role)
	}

	return nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
