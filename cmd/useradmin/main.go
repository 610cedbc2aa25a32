// Command useradmin creates a user account directly in the database,
// bypassing the HTTP endpoint. Useful for bootstrapping a first account
// or for operators provisioning users in bulk scripts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/penlight/penlight/internal/server/auth"
	"github.com/penlight/penlight/internal/server/config"
	"github.com/penlight/penlight/internal/server/models"
	"github.com/penlight/penlight/internal/server/repositories/repomanager"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {

	cfg := &config.Config{}
	cfg.LoadDefaults()

	dsn := flag.String("d", cfg.DatabaseDSN, "database DSN")
	email := flag.String("u", "", "user email")
	name := flag.String("n", "", "display name")
	cost := flag.Int("w", cfg.PasswordHashCost, "bcrypt work factor")
	flag.Parse()

	if *email == "" || *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	password, err := promptPassword()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()

	db, err := repomanager.Open(ctx, *dsn)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("%v", err)
	}

	hasher := auth.NewPasswordHasher(*cost)
	hash, err := hasher.Hash(string(password))
	if err != nil {
		log.Fatalf("%v", err)
	}

	user, err := rm.Users(db).Create(ctx, &models.User{
		Email:        *email,
		Name:         *name,
		PasswordHash: hash,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("created user %s (%s)\n", user.ID, user.Email)
}

func promptPassword() ([]byte, error) {
	fmt.Print("Enter password: ")
	password, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("empty password")
	}

	fmt.Print("Repeat password: ")
	confirm, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	if string(password) != string(confirm) {
		return nil, fmt.Errorf("passwords do not match")
	}

	return password, nil
}
