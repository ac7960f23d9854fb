// Package config loads process settings from the environment (with an
// optional .env file) and engine tables from YAML.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	DBPath           string
	RedisAddr        string
	ORSAPIKey        string
	GoogleMapsAPIKey string
	GeocodeTimeout   time.Duration
	StoreTimeout     time.Duration
	EnginePath       string
	CitiesCSV        string
	RegionsCSV       string
	SeedPath         string

	Engine EngineConfig
}

// Get returns the environment value for key or fallback when unset.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// GetDuration parses a Go duration from the environment.
func GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s=%q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %s", key, d)
	}
	return d, nil
}

// Load reads .env (if any), the environment and the engine YAML.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := &Config{
		Port:             Get("PORT", "8080"),
		DatabaseURL:      Get("DATABASE_URL", ""),
		DBPath:           Get("DB_PATH", "data/app.db"),
		RedisAddr:        Get("REDIS_ADDR", ""),
		ORSAPIKey:        Get("ORS_API_KEY", ""),
		GoogleMapsAPIKey: Get("GOOGLE_MAPS_API_KEY", ""),
		EnginePath:       Get("ENGINE_CONFIG", ""),
		CitiesCSV:        Get("CITIES_CSV", ""),
		RegionsCSV:       Get("REGIONS_CSV", ""),
		SeedPath:         Get("SEED_PATH", "data/seeds/client_facts.json"),
	}

	var err error
	if cfg.GeocodeTimeout, err = GetDuration("GEOCODE_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = GetDuration("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	engine, err := LoadEngine(cfg.EnginePath)
	if err != nil {
		return nil, err
	}
	cfg.Engine = engine

	return cfg, nil
}
