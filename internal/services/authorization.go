package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/platform/obs"
	"travel-route-service/internal/ports"
)

// AuthorizationWorkflow gates persistence of trip drafts behind explicit
// human confirmation for air travel and eligibility overrides.
//
// Every mutation is a read-modify-write through the DecisionStore, so
// concurrent submissions for one draft serialize per key and the last
// submitted distance wins. Store failures leave the decision untouched.
type AuthorizationWorkflow struct {
	decisions ports.DecisionStore
	records   ports.RecordStore
	timeout   time.Duration
	now       func() time.Time
}

func NewAuthorizationWorkflow(decisions ports.DecisionStore, records ports.RecordStore, timeout time.Duration) *AuthorizationWorkflow {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuthorizationWorkflow{
		decisions: decisions,
		records:   records,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a freshly computed cost for the draft and settles the
// decision. report is nil for edits, which skip the eligibility gate.
//
// An existing air confirmation survives only if the new distance is within
// domain.DriftToleranceKm of the confirmed one.
func (w *AuthorizationWorkflow) Submit(
	ctx context.Context,
	key string,
	cost domain.CostBreakdown,
	report *domain.EligibilityReport,
	isEdit bool,
) (_ domain.AuthorizationDecision, err error) {
	defer obs.Time(ctx, "authorization.Submit")(&err)

	if strings.TrimSpace(key) == "" {
		return domain.AuthorizationDecision{}, fmt.Errorf("submit decision: draft key must be non-empty: %w", domain.ErrPreconditionViolated)
	}
	if !isEdit && report == nil {
		return domain.AuthorizationDecision{}, fmt.Errorf("submit decision: new draft without eligibility report: %w", domain.ErrPreconditionViolated)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	return w.decisions.Update(ctx, key, func(cur *domain.AuthorizationDecision) (*domain.AuthorizationDecision, error) {
		next := domain.AuthorizationDecision{DraftKey: key}
		if cur != nil {
			if cur.State == domain.DecisionCancelled {
				return nil, fmt.Errorf("submit decision %q: draft was cancelled: %w", key, domain.ErrInvalidTransition)
			}
			if cur.TripID != "" {
				return nil, fmt.Errorf("submit decision %q: already persisted as %s: %w", key, cur.TripID, domain.ErrInvalidTransition)
			}
			if cur.Persisting {
				return nil, fmt.Errorf("submit decision %q: persist in progress: %w", key, domain.ErrInvalidTransition)
			}
			next = cur.Clone()
		}

		next.Mode = cost.Mode
		next.DistanceKm = cost.TotalDistanceKm
		next.Cost = cost

		if next.AirConfirmation != nil && !next.AirConfirmation.CoversDistance(next.DistanceKm) {
			log.Printf(
				"authorization: air confirmation invalidated key=%s confirmed_km=%.3f new_km=%.3f",
				key, next.AirConfirmation.AtDistanceKm, next.DistanceKm,
			)
			next.AirConfirmation = nil
		}

		if isEdit {
			next.ObligatoryBlocked = false
		} else {
			next.Verdicts = report.Verdicts
			next.ObligatoryBlocked = !report.MayProceedWithoutOverride()
		}

		next.Settle()
		next.Version++
		next.UpdatedAt = w.now()
		return &next, nil
	})
}

// ConfirmAirTravel records a human confirmation at the current distance.
func (w *AuthorizationWorkflow) ConfirmAirTravel(ctx context.Context, key, actor string) (_ domain.AuthorizationDecision, err error) {
	defer obs.Time(ctx, "authorization.ConfirmAirTravel")(&err)

	return w.commitAudited(ctx, key, domain.AuditAirConfirmation, actor, "", func(d *domain.AuthorizationDecision) error {
		if d.State != domain.DecisionPending || !d.NeedsAirConfirmation() {
			return fmt.Errorf("confirm air travel %q in state %s: %w", key, d.State, domain.ErrInvalidTransition)
		}
		d.AirConfirmation = &domain.AirConfirmation{
			AtDistanceKm: d.DistanceKm,
			Actor:        actor,
			At:           w.now(),
		}
		return nil
	})
}

// OverrideEligibility accepts a non-empty justification for a draft blocked
// by an obligatory rule. The audit entry keeps every rule that failed at
// decision time.
func (w *AuthorizationWorkflow) OverrideEligibility(ctx context.Context, key, justification, actor string) (_ domain.AuthorizationDecision, err error) {
	defer obs.Time(ctx, "authorization.OverrideEligibility")(&err)

	justification = strings.TrimSpace(justification)
	if justification == "" {
		return domain.AuthorizationDecision{}, fmt.Errorf("override eligibility %q: %w", key, domain.ErrJustificationRequired)
	}

	return w.commitAudited(ctx, key, domain.AuditEligibilityOverride, actor, justification, func(d *domain.AuthorizationDecision) error {
		if d.State != domain.DecisionPending || !d.NeedsOverride() {
			return fmt.Errorf("override eligibility %q in state %s: %w", key, d.State, domain.ErrInvalidTransition)
		}
		report := domain.EligibilityReport{Verdicts: d.Verdicts}
		d.Override = &domain.EligibilityOverride{
			Justification: justification,
			Actor:         actor,
			At:            w.now(),
			FailedRules:   report.FailedRules(""),
		}
		return nil
	})
}

// Cancel discards a draft that has not been persisted. No audit is written.
func (w *AuthorizationWorkflow) Cancel(ctx context.Context, key string) (_ domain.AuthorizationDecision, err error) {
	defer obs.Time(ctx, "authorization.Cancel")(&err)

	_, next, err := w.transition(ctx, key, func(d *domain.AuthorizationDecision) error {
		if d.State == domain.DecisionCancelled || d.TripID != "" {
			return fmt.Errorf("cancel %q in state %s: %w", key, d.State, domain.ErrInvalidTransition)
		}
		if d.Persisting {
			return fmt.Errorf("cancel %q: persist in progress: %w", key, domain.ErrInvalidTransition)
		}
		d.State = domain.DecisionCancelled
		return nil
	})
	return next, err
}

// Decision returns the current decision for key.
func (w *AuthorizationWorkflow) Decision(ctx context.Context, key string) (domain.AuthorizationDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.decisions.Get(ctx, key)
}

// reservePersist marks the decision as being persisted. It fails unless
// the decision is still at seenVersion and may be persisted, so at most one
// caller reaches the record store per draft.
func (w *AuthorizationWorkflow) reservePersist(ctx context.Context, key string, seenVersion int64) (domain.AuthorizationDecision, error) {
	_, next, err := w.transition(ctx, key, func(d *domain.AuthorizationDecision) error {
		if d.Version != seenVersion {
			return fmt.Errorf("reserve persist %q: decision moved from version %d to %d: %w", key, seenVersion, d.Version, domain.ErrStaleDecision)
		}
		if !d.MayPersist() {
			return fmt.Errorf("persist %q in state %s: %w", key, d.State, domain.ErrInvalidTransition)
		}
		d.Persisting = true
		return nil
	})
	return next, err
}

// markPersisted attaches the trip id and releases the reservation taken at
// reservedVersion.
func (w *AuthorizationWorkflow) markPersisted(ctx context.Context, key, tripID string, reservedVersion int64) (domain.AuthorizationDecision, error) {
	_, next, err := w.transition(context.WithoutCancel(ctx), key, func(d *domain.AuthorizationDecision) error {
		if !d.Persisting || d.Version != reservedVersion {
			return fmt.Errorf("mark persisted %q: reservation at version %d lost, now version %d: %w", key, reservedVersion, d.Version, domain.ErrInvalidTransition)
		}
		d.Persisting = false
		d.TripID = tripID
		return nil
	})
	return next, err
}

// releasePersist drops the reservation after a failed record store write.
func (w *AuthorizationWorkflow) releasePersist(ctx context.Context, key string, reservedVersion int64) {
	_, _, err := w.transition(context.WithoutCancel(ctx), key, func(d *domain.AuthorizationDecision) error {
		if !d.Persisting || d.Version != reservedVersion {
			return fmt.Errorf("release %q: reservation at version %d lost, now version %d", key, reservedVersion, d.Version)
		}
		d.Persisting = false
		return nil
	})
	if err != nil {
		log.Printf("authorization: release persist failed key=%s err=%v", key, err)
	}
}

// transition applies mutate to a copy of the existing decision and settles it.
func (w *AuthorizationWorkflow) transition(
	ctx context.Context,
	key string,
	mutate func(d *domain.AuthorizationDecision) error,
) (prev, next domain.AuthorizationDecision, err error) {
	if strings.TrimSpace(key) == "" {
		return prev, next, fmt.Errorf("authorization: draft key must be non-empty: %w", domain.ErrPreconditionViolated)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	next, err = w.decisions.Update(ctx, key, func(cur *domain.AuthorizationDecision) (*domain.AuthorizationDecision, error) {
		if cur == nil {
			return nil, fmt.Errorf("authorization %q: %w", key, domain.ErrDecisionNotFound)
		}
		prev = cur.Clone()
		d := cur.Clone()
		if err := mutate(&d); err != nil {
			return nil, err
		}
		d.Settle()
		d.Version++
		d.UpdatedAt = w.now()
		return &d, nil
	})
	return prev, next, err
}

// commitAudited commits mutate together with its audit entry, kept on the
// decision as PendingAudit, then hands the entry to the record store.
// When the record store refuses it the transition is compensated; if the
// decision moved meanwhile the entry stays pending and blocks persistence
// until FlushPendingAudit delivers it.
func (w *AuthorizationWorkflow) commitAudited(
	ctx context.Context,
	key string,
	kind domain.AuditKind,
	actor, justification string,
	mutate func(d *domain.AuthorizationDecision) error,
) (domain.AuthorizationDecision, error) {
	if _, err := w.FlushPendingAudit(ctx, key); err != nil {
		return domain.AuthorizationDecision{}, err
	}

	prev, next, err := w.transition(ctx, key, func(d *domain.AuthorizationDecision) error {
		if err := mutate(d); err != nil {
			return err
		}
		d.Settle()
		entry := auditEntry(*d, kind, actor, justification, w.now())
		d.PendingAudit = &entry
		return nil
	})
	if err != nil {
		return domain.AuthorizationDecision{}, err
	}

	entry := *next.PendingAudit
	if err := w.appendAudit(ctx, entry); err != nil {
		w.compensate(ctx, prev, next)
		return domain.AuthorizationDecision{}, fmt.Errorf("authorization %q: append audit log: %w", key, err)
	}

	return w.clearPendingAudit(ctx, key, entry, next), nil
}

// FlushPendingAudit delivers an audit entry left on the decision by an
// earlier failed append and returns the current decision.
func (w *AuthorizationWorkflow) FlushPendingAudit(ctx context.Context, key string) (_ domain.AuthorizationDecision, err error) {
	if strings.TrimSpace(key) == "" {
		return domain.AuthorizationDecision{}, fmt.Errorf("authorization: draft key must be non-empty: %w", domain.ErrPreconditionViolated)
	}
	d, err := w.Decision(ctx, key)
	if err != nil {
		return domain.AuthorizationDecision{}, err
	}
	if d.PendingAudit == nil {
		return d, nil
	}

	defer obs.Time(ctx, "authorization.FlushPendingAudit")(&err)

	entry := *d.PendingAudit
	if err := w.appendAudit(ctx, entry); err != nil {
		return domain.AuthorizationDecision{}, fmt.Errorf("authorization %q: flush pending audit: %w", key, err)
	}
	log.Printf("authorization: flushed pending audit key=%s kind=%s", key, entry.Kind)

	return w.clearPendingAudit(ctx, key, entry, d), nil
}

func (w *AuthorizationWorkflow) appendAudit(ctx context.Context, entry domain.AuditEntry) error {
	actx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.records.AppendAuditLog(actx, entry.DraftKey, entry)
	if err != nil && !errors.Is(err, domain.ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}

// clearPendingAudit removes entry from the decision once it is stored.
// A failure here leaves the entry pending, so it may be appended twice.
func (w *AuthorizationWorkflow) clearPendingAudit(ctx context.Context, key string, entry domain.AuditEntry, seen domain.AuthorizationDecision) domain.AuthorizationDecision {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	next, err := w.decisions.Update(cctx, key, func(cur *domain.AuthorizationDecision) (*domain.AuthorizationDecision, error) {
		if cur == nil {
			return nil, fmt.Errorf("clear pending audit %q: %w", key, domain.ErrDecisionNotFound)
		}
		d := cur.Clone()
		if d.PendingAudit == nil || !d.PendingAudit.SameAction(entry) {
			return &d, nil
		}
		d.PendingAudit = nil
		d.Version++
		d.UpdatedAt = w.now()
		return &d, nil
	})
	if err != nil {
		log.Printf("authorization: clear pending audit failed key=%s err=%v", key, err)
		return seen
	}
	return next
}

// compensate restores prev when next is still the stored version.
func (w *AuthorizationWorkflow) compensate(ctx context.Context, prev, next domain.AuthorizationDecision) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	_, err := w.decisions.Update(cctx, next.DraftKey, func(cur *domain.AuthorizationDecision) (*domain.AuthorizationDecision, error) {
		if cur == nil || cur.Version != next.Version {
			return nil, fmt.Errorf("compensate %q: decision moved to version %d", next.DraftKey, versionOf(cur))
		}
		restored := prev.Clone()
		restored.Version = next.Version + 1
		restored.UpdatedAt = w.now()
		return &restored, nil
	})
	if err != nil {
		log.Printf("authorization: compensation failed, audit stays pending key=%s err=%v", next.DraftKey, err)
	}
}

func auditEntry(d domain.AuthorizationDecision, kind domain.AuditKind, actor, justification string, at time.Time) domain.AuditEntry {
	report := domain.EligibilityReport{Verdicts: d.Verdicts}
	return domain.AuditEntry{
		DraftKey:          d.DraftKey,
		Kind:              kind,
		State:             d.State,
		Actor:             actor,
		Justification:     justification,
		FailedObligatory:  report.FailedRules(domain.RuleObligatory),
		FailedRecommended: report.FailedRules(domain.RuleRecommended),
		DistanceKm:        d.DistanceKm,
		RecordedAt:        at,
	}
}

func versionOf(d *domain.AuthorizationDecision) int64 {
	if d == nil {
		return 0
	}
	return d.Version
}
