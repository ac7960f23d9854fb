package decisions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/ports"
)

// MemoryDecisionStore keeps decisions in process. Updates are serialized.
type MemoryDecisionStore struct {
	mu sync.Mutex
	m  map[string]domain.AuthorizationDecision
}

func NewMemoryDecisionStore() *MemoryDecisionStore {
	return &MemoryDecisionStore{m: make(map[string]domain.AuthorizationDecision)}
}

func (s *MemoryDecisionStore) Get(ctx context.Context, key string) (domain.AuthorizationDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuthorizationDecision{}, fmt.Errorf("get decision %q: %w: %w", key, domain.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.m[key]
	if !ok {
		return domain.AuthorizationDecision{}, fmt.Errorf("get decision %q: %w", key, domain.ErrDecisionNotFound)
	}
	return d.Clone(), nil
}

func (s *MemoryDecisionStore) Update(ctx context.Context, key string, fn ports.UpdateFunc) (domain.AuthorizationDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuthorizationDecision{}, fmt.Errorf("update decision %q: %w: %w", key, domain.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *domain.AuthorizationDecision
	if d, ok := s.m[key]; ok {
		c := d.Clone()
		cur = &c
	}

	next, err := fn(cur)
	if err != nil {
		return domain.AuthorizationDecision{}, err
	}
	if next == nil {
		return domain.AuthorizationDecision{}, errors.New("update decision: update func returned nil")
	}

	s.m[key] = next.Clone()
	return next.Clone(), nil
}
