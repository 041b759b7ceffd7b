// Command issue-token prints an access token for an existing user so the API
// can be exercised without a login flow.
//
//	go run ./cmd/issue-token -user alice -ttl 8h
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"inventory-admin/internal/config"
	"inventory-admin/internal/database"
	"inventory-admin/internal/middleware"
	"inventory-admin/internal/repository"
)

func main() {
	username := flag.String("user", "", "username to issue the token for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *username == "" {
		log.Fatal("-user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, "silent")
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	user, err := repository.NewUserRepository(db).GetByUsername(context.Background(), *username)
	if err != nil {
		log.Fatalf("User %q not found: %v", *username, err)
	}

	token, err := middleware.NewAuth([]byte(cfg.JWTSecret)).IssueToken(user.ID.String(), user.Role, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
