package domain

import (
	"math"
	"slices"
	"time"
)

type DecisionState string

const (
	DecisionPending    DecisionState = "pending"
	DecisionConfirmed  DecisionState = "confirmed"
	DecisionOverridden DecisionState = "overridden"
	DecisionCancelled  DecisionState = "cancelled"
)

// DriftToleranceKm bounds how far the distance may move before an air
// travel confirmation stops applying.
const DriftToleranceKm = 10.0

// AirConfirmation tags a decision as confirmed at a specific distance.
type AirConfirmation struct {
	AtDistanceKm float64   `json:"at_distance_km"`
	Actor        string    `json:"actor"`
	At           time.Time `json:"at"`
}

// CoversDistance reports whether the confirmation still applies to d.
func (c *AirConfirmation) CoversDistance(d float64) bool {
	return c != nil && math.Abs(c.AtDistanceKm-d) <= DriftToleranceKm
}

type EligibilityOverride struct {
	Justification string    `json:"justification"`
	Actor         string    `json:"actor"`
	At            time.Time `json:"at"`
	FailedRules   []string  `json:"failed_rules"`
}

// AuthorizationDecision is the only piece of cross-call state, keyed by draft.
type AuthorizationDecision struct {
	DraftKey   string        `json:"draft_key"`
	State      DecisionState `json:"state"`
	Mode       TravelMode    `json:"mode"`
	DistanceKm float64       `json:"distance_km"`
	// Cost is the breakdown the decision was made on. Persist refuses a
	// recomputed breakdown that differs from it.
	Cost CostBreakdown `json:"cost"`

	AirConfirmation *AirConfirmation `json:"air_confirmation,omitempty"`

	// Eligibility snapshot at decision time. ObligatoryBlocked is set for
	// new drafts whose obligatory rules failed.
	Verdicts          []EligibilityVerdict `json:"verdicts,omitempty"`
	ObligatoryBlocked bool                 `json:"obligatory_blocked"`
	Override          *EligibilityOverride `json:"override,omitempty"`

	// PendingAudit is an audit entry committed with its transition but not
	// yet accepted by the record store. It blocks persistence until flushed.
	PendingAudit *AuditEntry `json:"pending_audit,omitempty"`

	// Persisting reserves the decision while the trip is written to the
	// record store. A reserved decision accepts no other transition.
	Persisting bool `json:"persisting,omitempty"`

	TripID    string    `json:"trip_id,omitempty"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NeedsAirConfirmation is true for air trips whose confirmation is missing
// or drifted.
func (d *AuthorizationDecision) NeedsAirConfirmation() bool {
	return d.Mode == TravelAir && !d.AirConfirmation.CoversDistance(d.DistanceKm)
}

// NeedsOverride is true while an obligatory failure has no justification.
func (d *AuthorizationDecision) NeedsOverride() bool {
	return d.ObligatoryBlocked && d.Override == nil
}

// Settle derives the state from the recorded facts. Cancelled is sticky.
func (d *AuthorizationDecision) Settle() {
	switch {
	case d.State == DecisionCancelled:
	case d.NeedsAirConfirmation() || d.NeedsOverride():
		d.State = DecisionPending
	case d.Override != nil:
		d.State = DecisionOverridden
	default:
		d.State = DecisionConfirmed
	}
}

// MayPersist is true only for Confirmed or Overridden decisions that are
// not persisted, not reserved and have no audit entry outstanding.
func (d *AuthorizationDecision) MayPersist() bool {
	return (d.State == DecisionConfirmed || d.State == DecisionOverridden) &&
		d.TripID == "" && !d.Persisting && d.PendingAudit == nil
}

// Clone returns a deep copy so store implementations never share slices.
func (d AuthorizationDecision) Clone() AuthorizationDecision {
	out := d
	if d.AirConfirmation != nil {
		c := *d.AirConfirmation
		out.AirConfirmation = &c
	}
	if d.Override != nil {
		o := *d.Override
		o.FailedRules = append([]string(nil), d.Override.FailedRules...)
		out.Override = &o
	}
	if d.PendingAudit != nil {
		a := d.PendingAudit.Clone()
		out.PendingAudit = &a
	}
	out.Verdicts = append([]EligibilityVerdict(nil), d.Verdicts...)
	return out
}

type AuditKind string

const (
	AuditAirConfirmation     AuditKind = "air-confirmation"
	AuditEligibilityOverride AuditKind = "eligibility-override"
)

// AuditEntry is written once per human authorization action.
type AuditEntry struct {
	DraftKey          string        `json:"draft_key"`
	Kind              AuditKind     `json:"kind"`
	State             DecisionState `json:"state"`
	Actor             string        `json:"actor"`
	Justification     string        `json:"justification,omitempty"`
	FailedObligatory  []string      `json:"failed_obligatory"`
	FailedRecommended []string      `json:"failed_recommended"`
	DistanceKm        float64       `json:"distance_km"`
	RecordedAt        time.Time     `json:"recorded_at"`
}

func (e AuditEntry) Clone() AuditEntry {
	out := e
	out.FailedObligatory = slices.Clone(e.FailedObligatory)
	out.FailedRecommended = slices.Clone(e.FailedRecommended)
	return out
}

// SameAction reports whether e and o record the same human action.
func (e AuditEntry) SameAction(o AuditEntry) bool {
	return e.DraftKey == o.DraftKey && e.Kind == o.Kind && e.Actor == o.Actor && e.RecordedAt.Equal(o.RecordedAt)
}

// TripRecord is handed to the record store once a decision permits it.
type TripRecord struct {
	Draft    TripDraft             `json:"draft"`
	Cost     CostBreakdown         `json:"cost"`
	Route    *RouteResult          `json:"route,omitempty"`
	Decision AuthorizationDecision `json:"decision"`
}
