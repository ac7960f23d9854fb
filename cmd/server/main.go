package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
	"travel-route-service/internal/adapters/cache"
	"travel-route-service/internal/adapters/decisions"
	"travel-route-service/internal/adapters/geocoding"
	"travel-route-service/internal/adapters/repositories"
	"travel-route-service/internal/api"
	"travel-route-service/internal/api/handlers"
	"travel-route-service/internal/config"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/geo"
	"travel-route-service/internal/platform/db"
	"travel-route-service/internal/ports"
	"travel-route-service/internal/services"

	"github.com/redis/go-redis/v9"
)

const decisionKeyPrefix = "travel:decision:"

// main is the application composition root.
// It wires concrete adapters (SQL, Redis, geocoders) behind ports and starts
// the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	tables, err := geo.LoadTables(cfg.CitiesCSV, cfg.RegionsCSV)
	if err != nil {
		log.Fatal(err)
	}

	conn, dialect, err := openDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	// Initialize schema and seed demo data on startup for local runs.
	if err := initAndSeed(conn, dialect, cfg.SeedPath); err != nil {
		log.Fatal(err)
	}

	records := repositories.NewSQLRecordStore(conn, dialect)

	resolverOpts := []services.ResolverOption{services.WithGeocodeTimeout(cfg.GeocodeTimeout)}
	geocoder, err := newGeocoder(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if geocoder != nil {
		// Address-level results are cached in the same database.
		resolverOpts = append(resolverOpts, services.WithGeocoder(geocoder, cache.NewSQLGeocodeCache(conn, dialect)))
	}

	decisionStore, closeDecisions, err := newDecisionStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeDecisions()

	home := cfg.Engine.Home
	resolver := services.NewCoordinateResolver(tables, home, resolverOpts...)
	planner := services.NewTripPlanner(resolver, services.NewCostModel(cfg.Engine.Rates))
	eligibility := services.NewEligibilityEngine(records, cfg.Engine.Rules, cfg.StoreTimeout)
	workflow := services.NewAuthorizationWorkflow(decisionStore, records, cfg.StoreTimeout)
	engine := services.NewEngine(planner, eligibility, workflow, records, cfg.StoreTimeout)

	trips := handlers.NewTripHandler(engine, records, domain.LocationDescriptor{City: home.Name, State: home.Region})
	router := api.NewRouter(trips)

	log.Printf("Server listening addr=:%s dialect=%s", cfg.Port, dialect)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// openDB prefers postgres when DATABASE_URL is set, else a local sqlite file.
func openDB(cfg *config.Config) (*sql.DB, db.Dialect, error) {
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		return conn, db.Postgres, err
	}
	conn, err := db.OpenSQLite(cfg.DBPath)
	return conn, db.SQLite, err
}

func initAndSeed(conn *sql.DB, dialect db.Dialect, seedPath string) error {
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("seed file not found path=%s (skipping seed)", seedPath)
		return nil
	}
	if err := repositories.SeedFromJSON(conn, dialect, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

// newGeocoder picks Google when its key is set, then ORS. No key means the
// resolver runs the static cascade only.
func newGeocoder(cfg *config.Config) (ports.Geocoder, error) {
	switch {
	case cfg.GoogleMapsAPIKey != "":
		g, err := geocoding.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
		if err != nil {
			return nil, err
		}
		log.Println("geocoder=google")
		return g, nil
	case cfg.ORSAPIKey != "":
		g, err := geocoding.NewORSGeocoder(cfg.ORSAPIKey)
		if err != nil {
			return nil, err
		}
		log.Println("geocoder=ors")
		return g, nil
	default:
		log.Println("geocoder=none (static tables only)")
		return nil, nil
	}
}

func newDecisionStore(cfg *config.Config) (ports.DecisionStore, func(), error) {
	if cfg.RedisAddr == "" {
		log.Println("decision store=memory")
		return decisions.NewMemoryDecisionStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("decision store: ping redis %s: %w", cfg.RedisAddr, err)
	}

	log.Printf("decision store=redis addr=%s", cfg.RedisAddr)
	return decisions.NewRedisDecisionStore(client, decisionKeyPrefix, 0), func() { client.Close() }, nil
}
