package repositories

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"travel-route-service/internal/domain"

	"github.com/google/uuid"
)

// MemoryRecordStore is an in-process record store for the CLI and tests.
type MemoryRecordStore struct {
	mu     sync.Mutex
	facts  map[int64]domain.ClientFacts
	trips  map[string]domain.TripRecord
	byKey  map[string]string
	audits map[string][]domain.AuditEntry
	fail   error
}

func NewMemoryRecordStore(facts ...domain.ClientFacts) *MemoryRecordStore {
	s := &MemoryRecordStore{
		facts:  make(map[int64]domain.ClientFacts, len(facts)),
		trips:  make(map[string]domain.TripRecord),
		byKey:  make(map[string]string),
		audits: make(map[string][]domain.AuditEntry),
	}
	for _, f := range facts {
		s.facts[f.ClientID] = f
	}
	return s
}

// SetFail makes every call fail as unavailable until reset with nil.
func (s *MemoryRecordStore) SetFail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// PutClientFacts replaces the facts for f.ClientID.
func (s *MemoryRecordStore) PutClientFacts(f domain.ClientFacts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[f.ClientID] = f
}

func (s *MemoryRecordStore) GetClientFacts(ctx context.Context, clientID int64) (domain.ClientFacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(ctx); err != nil {
		return domain.ClientFacts{}, fmt.Errorf("get client facts: %w", err)
	}
	f, ok := s.facts[clientID]
	if !ok {
		return domain.ClientFacts{}, fmt.Errorf("get client facts: client_id=%d: %w", clientID, domain.ErrClientNotFound)
	}
	return f, nil
}

func (s *MemoryRecordStore) PersistTrip(ctx context.Context, trip domain.TripRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(ctx); err != nil {
		return "", fmt.Errorf("persist trip: %w", err)
	}
	if id, ok := s.byKey[trip.Draft.Key]; ok {
		return "", fmt.Errorf("persist trip %q: already stored as %s", trip.Draft.Key, id)
	}

	id := uuid.NewString()
	s.trips[id] = trip
	s.byKey[trip.Draft.Key] = id
	return id, nil
}

func (s *MemoryRecordStore) AppendAuditLog(ctx context.Context, draftKey string, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(ctx); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	s.audits[draftKey] = append(s.audits[draftKey], entry)
	return nil
}

func (s *MemoryRecordStore) ListAuditLog(ctx context.Context, draftKey string) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(ctx); err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	return slices.Clone(s.audits[draftKey]), nil
}

// Trip returns the stored record for a draft key.
func (s *MemoryRecordStore) Trip(draftKey string) (domain.TripRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byKey[draftKey]
	if !ok {
		return domain.TripRecord{}, false
	}
	return s.trips[id], true
}

func (s *MemoryRecordStore) failure(ctx context.Context) error {
	if s.fail != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, s.fail)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
