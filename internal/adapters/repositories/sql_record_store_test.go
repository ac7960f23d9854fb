package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/platform/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLRecordStore {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, InitSchema(conn))

	s := NewSQLRecordStore(conn, db.SQLite)
	s.now = func() time.Time { return time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC) }
	return s
}

func TestSQLRecordStoreClientFacts(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	err := SeedClientFacts(s.DB, db.SQLite, []ClientFactsSeed{
		{ClientID: 7, LastProposalOn: "2026-03-11", LastVisitOn: "2026-01-30", CumulativeSalesValue: 42000, TrailingRevenue: 90000},
		{ClientID: 8, CumulativeSalesValue: 120000},
	})
	require.NoError(t, err)

	f, err := s.GetClientFacts(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, f.LastProposalDaysAgo)
	require.NotNil(t, f.LastVisitDaysAgo)
	assert.Equal(t, 20, *f.LastProposalDaysAgo)
	assert.Equal(t, 60, *f.LastVisitDaysAgo)
	assert.Equal(t, 42000.0, f.CumulativeSalesValue)
	assert.Equal(t, 90000.0, f.TrailingRevenue)

	f, err = s.GetClientFacts(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, f.LastProposalDaysAgo, "no proposal on record")
	assert.Nil(t, f.LastVisitDaysAgo)

	_, err = s.GetClientFacts(ctx, 99)
	require.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestSeedClientFactsReplacesRows(t *testing.T) {
	s := newSQLiteStore(t)

	require.NoError(t, SeedClientFacts(s.DB, db.SQLite, []ClientFactsSeed{{ClientID: 1, CumulativeSalesValue: 10}}))
	require.NoError(t, SeedClientFacts(s.DB, db.SQLite, []ClientFactsSeed{{ClientID: 1, CumulativeSalesValue: 20}}))

	f, err := s.GetClientFacts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 20.0, f.CumulativeSalesValue)
}

func TestSeedClientFactsRejectsBadRows(t *testing.T) {
	s := newSQLiteStore(t)

	assert.Error(t, SeedClientFacts(s.DB, db.SQLite, []ClientFactsSeed{{ClientID: 0}}))
	assert.Error(t, SeedClientFacts(s.DB, db.SQLite, []ClientFactsSeed{{ClientID: 1, LastVisitOn: "31/03/2026"}}))
	assert.Error(t, SeedClientFacts(s.DB, db.SQLite, []ClientFactsSeed{{ClientID: 1, TrailingRevenue: -1}}))
}

func TestSQLRecordStorePersistTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	rec := domain.TripRecord{
		Draft: domain.TripDraft{Key: "draft-1", ClientID: 7, Kind: domain.TripRoundTrip},
		Cost: domain.CostBreakdown{
			Mode:                domain.TravelGround,
			TotalDistanceKm:     120,
			GroundTransportCost: 102,
			TollCost:            18.5,
			ParkingCost:         40,
			MealCost:            95,
		},
		Decision: domain.AuthorizationDecision{DraftKey: "draft-1", State: domain.DecisionConfirmed},
	}

	id, err := s.PersistTrip(ctx, rec)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	var total float64
	var mode, state string
	err = s.DB.QueryRow(`SELECT total_cost, mode, decision_state FROM trips WHERE trip_id = ?`, id).Scan(&total, &mode, &state)
	require.NoError(t, err)
	assert.InDelta(t, 255.5, total, 1e-9)
	assert.Equal(t, "ground", mode)
	assert.Equal(t, "confirmed", state)

	_, err = s.PersistTrip(ctx, rec)
	assert.Error(t, err, "a draft key is persisted once")
}

func TestSQLRecordStoreAuditLog(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendAuditLog(ctx, "draft-1", domain.AuditEntry{
		Kind:       domain.AuditAirConfirmation,
		State:      domain.DecisionPending,
		Actor:      "ana",
		DistanceKm: 1200,
		RecordedAt: at,
	}))
	require.NoError(t, s.AppendAuditLog(ctx, "draft-1", domain.AuditEntry{
		Kind:              domain.AuditEligibilityOverride,
		State:             domain.DecisionOverridden,
		Actor:             "ana",
		Justification:     "key account renewal",
		FailedObligatory:  []string{"min-days-since-last-proposal"},
		FailedRecommended: []string{"min-sales-volume"},
		DistanceKm:        1200,
		RecordedAt:        at.Add(time.Minute),
	}))
	require.NoError(t, s.AppendAuditLog(ctx, "draft-2", domain.AuditEntry{Kind: domain.AuditAirConfirmation, RecordedAt: at}))

	entries, err := s.ListAuditLog(ctx, "draft-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, domain.AuditAirConfirmation, entries[0].Kind)
	assert.Empty(t, entries[0].FailedObligatory)
	assert.True(t, entries[0].RecordedAt.Equal(at))

	assert.Equal(t, domain.DecisionOverridden, entries[1].State)
	assert.Equal(t, "key account renewal", entries[1].Justification)
	assert.Equal(t, []string{"min-days-since-last-proposal"}, entries[1].FailedObligatory)
	assert.Equal(t, []string{"min-sales-volume"}, entries[1].FailedRecommended)
}

func TestSQLRecordStoreUnavailable(t *testing.T) {
	s := newSQLiteStore(t)
	s.DB.Close()

	_, err := s.GetClientFacts(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	err = s.AppendAuditLog(context.Background(), "draft-1", domain.AuditEntry{})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
