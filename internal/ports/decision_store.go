package ports

import (
	"context"
	"travel-route-service/internal/domain"
)

// UpdateFunc receives the current decision (nil when none exists) and
// returns the replacement. Returning an error aborts without writing.
type UpdateFunc func(cur *domain.AuthorizationDecision) (*domain.AuthorizationDecision, error)

// Keyed storage for authorization decisions.
type DecisionStore interface {
	// Return the decision for key or domain.ErrDecisionNotFound.
	Get(ctx context.Context, key string) (domain.AuthorizationDecision, error)
	// Atomically read-modify-write the decision for key.
	Update(ctx context.Context, key string, fn UpdateFunc) (domain.AuthorizationDecision, error)
}
