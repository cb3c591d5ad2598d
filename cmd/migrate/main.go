package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"recap-mail/config"
	"recap-mail/internal/services"
	"recap-mail/pkg/database"
)

const usage = `
Recap Mail - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create or update all tables (GORM AutoMigrate)
  status      Show database connection status and table counts
  seed        Create a user with an already authorised Google account

Flags (seed):
  -email string          Account email
  -name string           Display name
  -external-id string    Google account id (the "sub" claim)
  -refresh-token string  OAuth refresh token, sealed with TOKEN_ENCRYPTION_KEY before storing
  -scopes string         Comma separated granted scopes (default: the scopes the service requests)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
  go run cmd/migrate/main.go seed -external-id 1234 -email a@b.io -refresh-token 1//0g...
`

func main() {
	email := flag.String("email", "", "Account email")
	name := flag.String("name", "", "Display name")
	externalID := flag.String("external-id", "", "Google account id")
	refreshToken := flag.String("refresh-token", "", "OAuth refresh token")
	scopes := flag.String("scopes", strings.Join(services.GoogleScopes, ","), "Granted scopes")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	case "seed":
		runSeed(cfg, database.SeedAccount{
			Email:       *email,
			DisplayName: *name,
			ExternalID:  *externalID,
			Scopes:      splitList(*scopes),
		}, *refreshToken)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("Running migrations UP...")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}

func showStatus() {
	log.Println("Checking database status...")

	if err := database.Ping(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	for _, table := range database.TableNames() {
		exists, err := database.TableExists(table)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.GetTableCount(table)
			log.Printf("Table %-20s exists (%d rows)", table, count)
		} else {
			log.Printf("Table %-20s does not exist", table)
		}
	}

	if err := database.HealthCheck(); err != nil {
		log.Printf("Health check warning: %v", err)
	} else {
		log.Println("Health check: PASSED")
	}
}

func runSeed(cfg *config.Config, account database.SeedAccount, refreshToken string) {
	if refreshToken == "" {
		log.Fatalf("seed requires -refresh-token")
	}
	cipher, err := services.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		log.Fatalf("Token cipher: %v", err)
	}
	sealed, err := cipher.Seal(refreshToken)
	if err != nil {
		log.Fatalf("Seal refresh token: %v", err)
	}
	account.RefreshTokenSealed = sealed

	u, err := database.SeedConnectedUser(account)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("User ready: %s (external id %s)", u.ID, account.ExternalID)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
