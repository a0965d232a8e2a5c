package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"questfeed/backend/internal/auth"
	"questfeed/backend/internal/config"
	"questfeed/backend/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands:")
		fmt.Println("  token <userID> <username>   mint a handshake token")
		fmt.Println("  last-active <userID>        show a user's last-active timestamp")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "token":
		if len(os.Args) < 4 {
			log.Fatal("usage: admin token <userID> <username>")
		}
		issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
		token, err := issuer.Issue(os.Args[2], os.Args[3])
		if err != nil {
			log.Fatalf("failed to sign token: %v", err)
		}
		fmt.Println(token)

	case "last-active":
		if len(os.Args) < 3 {
			log.Fatal("usage: admin last-active <userID>")
		}
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
		s := storage.NewStorageService(db, nil) // no Redis needed for the admin CLI
		user, err := s.GetUserByID(os.Args[2])
		if err != nil {
			log.Fatalf("lookup failed: %v", err)
		}
		fmt.Printf("%s\t%s\tlast active %s\n", user.ID, user.Username, user.LastActiveAt.Format("2006-01-02 15:04:05 MST"))

	default:
		log.Fatalf("unknown command %q", os.Args[1])
	}
}
