package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "prod" || env == "production" {
		log.Fatal("🚫 BLOCKED: Cannot drop tables in production environment")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }() // Error ignored: script exiting

	// Documents reference filestores; goose bookkeeping goes last so the
	// next migrate run rebuilds from scratch
	dropSQL := `
		DROP TABLE IF EXISTS documents CASCADE;
		DROP TABLE IF EXISTS filestores CASCADE;
		DROP TABLE IF EXISTS goose_db_version CASCADE;
	`

	if _, err := db.Exec(dropSQL); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}

	fmt.Println("All tables dropped successfully")
}
