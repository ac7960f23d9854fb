package main

import (
	"database/sql"
	"flag"
	"log"
	"strings"
	"travel-route-service/internal/adapters/repositories"
	"travel-route-service/internal/config"
	"travel-route-service/internal/platform/db"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	seedPath := flag.String("seed", config.Get("SEED_PATH", "data/seeds/client_facts.json"), "client facts JSON file")
	skipSeed := flag.Bool("schema-only", false, "create the schema without seeding")
	flag.Parse()

	var (
		conn    *sql.DB
		dialect db.Dialect
		err     error
	)
	if databaseURL := config.Get("DATABASE_URL", ""); strings.TrimSpace(databaseURL) != "" {
		conn, err = db.Open(databaseURL)
		dialect = db.Postgres
	} else {
		conn, err = db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
		dialect = db.SQLite
	}
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	initAndSeed(conn, dialect, *seedPath, *skipSeed)
}

func initAndSeed(conn *sql.DB, dialect db.Dialect, seedPath string, skipSeed bool) {
	log.Printf("Initializing database schema dialect=%s...", dialect)
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	if skipSeed {
		return
	}

	log.Printf("Seeding client facts from %s...", seedPath)
	if err := repositories.SeedFromJSON(conn, dialect, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
