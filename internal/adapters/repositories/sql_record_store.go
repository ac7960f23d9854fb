package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/platform/db"
	"travel-route-service/internal/platform/obs"

	"github.com/google/uuid"
)

// SQLRecordStore implements ports.RecordStore and ports.AuditReader on
// postgres or sqlite.
type SQLRecordStore struct {
	DB      *sql.DB
	Dialect db.Dialect
	now     func() time.Time
}

func NewSQLRecordStore(conn *sql.DB, dialect db.Dialect) *SQLRecordStore {
	return &SQLRecordStore{
		DB:      conn,
		Dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetClientFacts converts stored event dates into day counts as of today.
func (s *SQLRecordStore) GetClientFacts(ctx context.Context, clientID int64) (_ domain.ClientFacts, err error) {
	defer obs.Time(ctx, "records.GetClientFacts")(&err)

	if s.DB == nil {
		return domain.ClientFacts{}, errors.New("sql record store: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		last_proposal_on,
		last_visit_on,
		cumulative_sales_value,
		trailing_trip_cost,
		trailing_revenue
	FROM client_facts
	WHERE client_id = $1;
	`)

	var proposal, visit sql.NullString
	facts := domain.ClientFacts{ClientID: clientID}

	err = s.DB.QueryRowContext(ctx, query, clientID).Scan(
		&proposal,
		&visit,
		&facts.CumulativeSalesValue,
		&facts.TrailingTripCost,
		&facts.TrailingRevenue,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ClientFacts{}, fmt.Errorf("get client facts: client_id=%d: %w", clientID, domain.ErrClientNotFound)
	}
	if err != nil {
		return domain.ClientFacts{}, fmt.Errorf("get client facts: client_id=%d: %w: %w", clientID, domain.ErrStoreUnavailable, err)
	}

	today := s.now()
	if facts.LastProposalDaysAgo, err = daysSince(proposal, today); err != nil {
		return domain.ClientFacts{}, fmt.Errorf("get client facts: client_id=%d: last_proposal_on: %w", clientID, err)
	}
	if facts.LastVisitDaysAgo, err = daysSince(visit, today); err != nil {
		return domain.ClientFacts{}, fmt.Errorf("get client facts: client_id=%d: last_visit_on: %w", clientID, err)
	}

	return facts, nil
}

func daysSince(v sql.NullString, today time.Time) (*int, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v.String)
	if err != nil {
		return nil, err
	}
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	days := max(0, int(today.Sub(t).Hours()/24))
	return &days, nil
}

// PersistTrip inserts the trip and returns a new id. A draft key can be
// persisted once.
func (s *SQLRecordStore) PersistTrip(ctx context.Context, trip domain.TripRecord) (_ string, err error) {
	defer obs.Time(ctx, "records.PersistTrip")(&err)

	if s.DB == nil {
		return "", errors.New("sql record store: DB is nil")
	}

	payload, err := json.Marshal(trip)
	if err != nil {
		return "", fmt.Errorf("persist trip %q: encode payload: %w", trip.Draft.Key, err)
	}

	kind := trip.Draft.Kind
	if kind == "" {
		kind = domain.TripOneWay
	}

	id := uuid.NewString()
	query := s.Dialect.Rebind(`
	INSERT INTO trips (
		trip_id,
		draft_key,
		client_id,
		kind,
		mode,
		distance_km,
		total_cost,
		decision_state,
		payload,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`)

	_, err = s.DB.ExecContext(ctx, query,
		id,
		trip.Draft.Key,
		trip.Draft.ClientID,
		string(kind),
		string(trip.Cost.Mode),
		trip.Cost.TotalDistanceKm,
		trip.Cost.Total(),
		string(trip.Decision.State),
		string(payload),
		s.now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("persist trip %q: insert trips: %w", trip.Draft.Key, err)
	}

	return id, nil
}

func (s *SQLRecordStore) AppendAuditLog(ctx context.Context, draftKey string, entry domain.AuditEntry) (err error) {
	defer obs.Time(ctx, "records.AppendAuditLog")(&err)

	if s.DB == nil {
		return errors.New("sql record store: DB is nil")
	}

	failedObligatory, err := json.Marshal(nonNil(entry.FailedObligatory))
	if err != nil {
		return fmt.Errorf("append audit log %q: encode rules: %w", draftKey, err)
	}
	failedRecommended, err := json.Marshal(nonNil(entry.FailedRecommended))
	if err != nil {
		return fmt.Errorf("append audit log %q: encode rules: %w", draftKey, err)
	}

	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}

	query := s.Dialect.Rebind(`
	INSERT INTO audit_log (
		draft_key,
		kind,
		state,
		actor,
		justification,
		failed_obligatory,
		failed_recommended,
		distance_km,
		recorded_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`)

	_, err = s.DB.ExecContext(ctx, query,
		draftKey,
		string(entry.Kind),
		string(entry.State),
		entry.Actor,
		entry.Justification,
		string(failedObligatory),
		string(failedRecommended),
		entry.DistanceKm,
		recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append audit log %q: %w: %w", draftKey, domain.ErrStoreUnavailable, err)
	}

	return nil
}

// ListAuditLog returns a draft's audit entries, oldest first.
func (s *SQLRecordStore) ListAuditLog(ctx context.Context, draftKey string) (_ []domain.AuditEntry, err error) {
	defer obs.Time(ctx, "records.ListAuditLog")(&err)

	if s.DB == nil {
		return nil, errors.New("sql record store: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		kind,
		state,
		actor,
		justification,
		failed_obligatory,
		failed_recommended,
		distance_km,
		recorded_at
	FROM audit_log
	WHERE draft_key = $1
	ORDER BY recorded_at;
	`)

	rows, err := s.DB.QueryContext(ctx, query, draftKey)
	if err != nil {
		return nil, fmt.Errorf("list audit log %q: %w: %w", draftKey, domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0, 4)
	for rows.Next() {
		e := domain.AuditEntry{DraftKey: draftKey}
		var kind, state, obligatory, recommended, recordedAt string
		err := rows.Scan(
			&kind,
			&state,
			&e.Actor,
			&e.Justification,
			&obligatory,
			&recommended,
			&e.DistanceKm,
			&recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list audit log %q: scan row: %w", draftKey, err)
		}

		e.Kind = domain.AuditKind(kind)
		e.State = domain.DecisionState(state)
		if err := json.Unmarshal([]byte(obligatory), &e.FailedObligatory); err != nil {
			return nil, fmt.Errorf("list audit log %q: decode failed_obligatory: %w", draftKey, err)
		}
		if err := json.Unmarshal([]byte(recommended), &e.FailedRecommended); err != nil {
			return nil, fmt.Errorf("list audit log %q: decode failed_recommended: %w", draftKey, err)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("list audit log %q: parse recorded_at: %w", draftKey, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit log %q: row iteration: %w", draftKey, err)
	}

	return entries, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
