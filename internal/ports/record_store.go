package ports

import (
	"context"
	"travel-route-service/internal/domain"
)

// Port: the external record store the engine reads facts from and writes
// approval outcomes to.
type RecordStore interface {
	// Retrieve fresh historical facts for a client.
	GetClientFacts(ctx context.Context, clientID int64) (domain.ClientFacts, error)
	// Persist an authorized trip and return its id.
	PersistTrip(ctx context.Context, trip domain.TripRecord) (string, error)
	// Append one audit entry for a draft.
	AppendAuditLog(ctx context.Context, draftKey string, entry domain.AuditEntry) error
}

// Port: read side of the audit trail.
type AuditReader interface {
	ListAuditLog(ctx context.Context, draftKey string) ([]domain.AuditEntry, error)
}
