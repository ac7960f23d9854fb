package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
	"travel-route-service/internal/platform/db"
)

// Dates in client_facts and timestamps elsewhere are stored as text so the
// same schema runs on postgres and sqlite.
const dateLayout = "2006-01-02"

// Initialize the database schema.
func InitSchema(conn *sql.DB) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createClientFactsQuery := `
	CREATE TABLE IF NOT EXISTS client_facts (
		client_id BIGINT PRIMARY KEY,
		last_proposal_on TEXT,
		last_visit_on TEXT,
		cumulative_sales_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		trailing_trip_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		trailing_revenue DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		cache_key TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	);
	`

	createTripsQuery := `
	CREATE TABLE IF NOT EXISTS trips (
		trip_id TEXT PRIMARY KEY,
		draft_key TEXT NOT NULL UNIQUE,
		client_id BIGINT NOT NULL,
		kind TEXT NOT NULL,
		mode TEXT NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		total_cost DOUBLE PRECISION NOT NULL,
		decision_state TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	createAuditLogQuery := `
	CREATE TABLE IF NOT EXISTS audit_log (
		draft_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		state TEXT NOT NULL,
		actor TEXT NOT NULL,
		justification TEXT NOT NULL,
		failed_obligatory TEXT NOT NULL,
		failed_recommended TEXT NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		recorded_at TEXT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_audit_log_draft_key
	ON audit_log(draft_key, recorded_at);
	`

	statements := []string{
		createClientFactsQuery,
		createGeocodeCacheQuery,
		createTripsQuery,
		createAuditLogQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type ClientFactsSeed struct {
	ClientID             int64   `json:"client_id"`
	LastProposalOn       string  `json:"last_proposal_on,omitempty"`
	LastVisitOn          string  `json:"last_visit_on,omitempty"`
	CumulativeSalesValue float64 `json:"cumulative_sales_value"`
	TrailingTripCost     float64 `json:"trailing_trip_cost"`
	TrailingRevenue      float64 `json:"trailing_revenue"`
}

// Populate client_facts from a JSON file. Existing rows are replaced.
func SeedFromJSON(conn *sql.DB, dialect db.Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed client facts: read %q: %w", jsonPath, err)
	}

	var data []ClientFactsSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed client facts: parse json: %w", err)
	}

	return SeedClientFacts(conn, dialect, data)
}

func SeedClientFacts(conn *sql.DB, dialect db.Dialect, data []ClientFactsSeed) error {
	for i, item := range data {
		if item.ClientID <= 0 {
			return fmt.Errorf("seed client facts: invalid client_id at index %d: %d", i+1, item.ClientID)
		}
		for _, d := range []string{item.LastProposalOn, item.LastVisitOn} {
			if d == "" {
				continue
			}
			if _, err := time.Parse(dateLayout, d); err != nil {
				return fmt.Errorf("seed client facts: client_id=%d: date %q: %w", item.ClientID, d, err)
			}
		}
		if item.CumulativeSalesValue < 0 || item.TrailingTripCost < 0 || item.TrailingRevenue < 0 {
			return fmt.Errorf("seed client facts: client_id=%d: negative amounts", item.ClientID)
		}
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("seed client facts: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := dialect.Rebind(`
	INSERT INTO client_facts (
		client_id,
		last_proposal_on,
		last_visit_on,
		cumulative_sales_value,
		trailing_trip_cost,
		trailing_revenue
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (client_id) DO UPDATE
	SET last_proposal_on = EXCLUDED.last_proposal_on,
		last_visit_on = EXCLUDED.last_visit_on,
		cumulative_sales_value = EXCLUDED.cumulative_sales_value,
		trailing_trip_cost = EXCLUDED.trailing_trip_cost,
		trailing_revenue = EXCLUDED.trailing_revenue;
	`)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed client facts: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range data {
		_, err := stmt.Exec(
			f.ClientID,
			nullString(f.LastProposalOn),
			nullString(f.LastVisitOn),
			f.CumulativeSalesValue,
			f.TrailingTripCost,
			f.TrailingRevenue,
		)
		if err != nil {
			return fmt.Errorf("seed client facts: insert client_id=%d: %w", f.ClientID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed client facts: commit tx: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
