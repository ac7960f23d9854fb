package repositories

import (
	"context"
	"errors"
	"testing"
	"travel-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRecordStore(domain.ClientFacts{ClientID: 3, CumulativeSalesValue: 10})

	f, err := s.GetClientFacts(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, f.CumulativeSalesValue)

	_, err = s.GetClientFacts(ctx, 4)
	require.ErrorIs(t, err, domain.ErrClientNotFound)

	id, err := s.PersistTrip(ctx, domain.TripRecord{Draft: domain.TripDraft{Key: "k"}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = s.PersistTrip(ctx, domain.TripRecord{Draft: domain.TripDraft{Key: "k"}})
	assert.Error(t, err)

	rec, ok := s.Trip("k")
	require.True(t, ok)
	assert.Equal(t, "k", rec.Draft.Key)

	s.SetFail(errors.New("disk full"))
	err = s.AppendAuditLog(ctx, "k", domain.AuditEntry{})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	s.SetFail(nil)
	require.NoError(t, s.AppendAuditLog(ctx, "k", domain.AuditEntry{Actor: "ana"}))
	entries, err := s.ListAuditLog(ctx, "k")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ana", entries[0].Actor)
}
