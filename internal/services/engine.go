package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/platform/obs"
	"travel-route-service/internal/ports"
)

// costEpsilon absorbs floating-point noise when comparing a recomputed
// breakdown with the one recorded on a decision.
const costEpsilon = 1e-6

// Submission is the result of submitting a draft for authorization.
type Submission struct {
	Plan        *TripPlan                    `json:"plan"`
	Eligibility *domain.EligibilityReport    `json:"eligibility,omitempty"`
	Decision    domain.AuthorizationDecision `json:"decision"`
}

// Engine is the caller-facing surface of the estimator.
type Engine struct {
	planner     *TripPlanner
	eligibility *EligibilityEngine
	workflow    *AuthorizationWorkflow
	records     ports.RecordStore
	timeout     time.Duration
}

func NewEngine(
	planner *TripPlanner,
	eligibility *EligibilityEngine,
	workflow *AuthorizationWorkflow,
	records ports.RecordStore,
	timeout time.Duration,
) *Engine {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Engine{
		planner:     planner,
		eligibility: eligibility,
		workflow:    workflow,
		records:     records,
		timeout:     timeout,
	}
}

// ComputeRoute is pure with respect to engine state.
func (e *Engine) ComputeRoute(ctx context.Context, draft domain.TripDraft) (*TripPlan, error) {
	return e.planner.ComputeRoute(ctx, draft)
}

// CheckEligibility evaluates the rule set for clientID.
func (e *Engine) CheckEligibility(ctx context.Context, clientID int64, draft domain.TripDraft) (domain.EligibilityReport, error) {
	return e.eligibility.Evaluate(ctx, clientID, draft)
}

// Submit recomputes the route, evaluates eligibility for new drafts and
// settles the authorization decision, in that order, so the decision never
// observes a stale distance.
func (e *Engine) Submit(ctx context.Context, draft domain.TripDraft, isEdit bool) (*Submission, error) {
	if strings.TrimSpace(draft.Key) == "" {
		return nil, fmt.Errorf("submit draft: key must be non-empty: %w", domain.ErrPreconditionViolated)
	}

	plan, err := e.planner.ComputeRoute(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("submit draft %q: %w", draft.Key, err)
	}

	var report *domain.EligibilityReport
	if !isEdit {
		r, err := e.eligibility.Evaluate(ctx, eligibilityClient(plan.Draft), plan.Draft)
		if err != nil {
			return nil, fmt.Errorf("submit draft %q: %w", draft.Key, err)
		}
		report = &r
	}

	decision, err := e.workflow.Submit(ctx, draft.Key, plan.Cost, report, isEdit)
	if err != nil {
		return nil, fmt.Errorf("submit draft %q: %w", draft.Key, err)
	}

	return &Submission{Plan: plan, Eligibility: report, Decision: decision}, nil
}

func (e *Engine) ConfirmAirTravel(ctx context.Context, key, actor string) (domain.AuthorizationDecision, error) {
	return e.workflow.ConfirmAirTravel(ctx, key, actor)
}

func (e *Engine) OverrideEligibility(ctx context.Context, key, justification, actor string) (domain.AuthorizationDecision, error) {
	return e.workflow.OverrideEligibility(ctx, key, justification, actor)
}

func (e *Engine) Cancel(ctx context.Context, key string) (domain.AuthorizationDecision, error) {
	return e.workflow.Cancel(ctx, key)
}

func (e *Engine) Decision(ctx context.Context, key string) (domain.AuthorizationDecision, error) {
	return e.workflow.Decision(ctx, key)
}

// Persist hands an authorized draft to the record store. The route is
// recomputed first; a cost breakdown that no longer matches the decision
// means the caller must resubmit. The decision is reserved at the version
// that was checked, so a concurrent Cancel, Submit or Persist cannot slip
// between the check and the record store write.
func (e *Engine) Persist(ctx context.Context, draft domain.TripDraft) (_ domain.AuthorizationDecision, err error) {
	defer obs.Time(ctx, "engine.Persist")(&err)

	plan, err := e.planner.ComputeRoute(ctx, draft)
	if err != nil {
		return domain.AuthorizationDecision{}, fmt.Errorf("persist draft %q: %w", draft.Key, err)
	}

	decision, err := e.workflow.FlushPendingAudit(ctx, draft.Key)
	if err != nil {
		return domain.AuthorizationDecision{}, fmt.Errorf("persist draft %q: %w", draft.Key, err)
	}

	if !sameCost(plan.Cost, decision.Cost) {
		return domain.AuthorizationDecision{}, fmt.Errorf(
			"persist draft %q: decided at %.3f km (%s) total %.2f, now %.3f km (%s) total %.2f: %w",
			draft.Key,
			decision.Cost.TotalDistanceKm, decision.Cost.Mode, decision.Cost.Total(),
			plan.Cost.TotalDistanceKm, plan.Cost.Mode, plan.Cost.Total(),
			domain.ErrStaleDecision,
		)
	}
	if !decision.MayPersist() {
		return domain.AuthorizationDecision{}, fmt.Errorf(
			"persist draft %q in state %s: %w", draft.Key, decision.State, domain.ErrInvalidTransition,
		)
	}

	reserved, err := e.workflow.reservePersist(ctx, draft.Key, decision.Version)
	if err != nil {
		return domain.AuthorizationDecision{}, fmt.Errorf("persist draft %q: %w", draft.Key, err)
	}

	pctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	recorded := reserved.Clone()
	recorded.Persisting = false
	route := plan.Route
	tripID, err := e.records.PersistTrip(pctx, domain.TripRecord{
		Draft:    plan.Draft,
		Cost:     plan.Cost,
		Route:    &route,
		Decision: recorded,
	})
	if err != nil {
		e.workflow.releasePersist(ctx, draft.Key, reserved.Version)
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return domain.AuthorizationDecision{}, fmt.Errorf("persist draft %q: %w", draft.Key, err)
	}

	return e.workflow.markPersisted(ctx, draft.Key, tripID, reserved.Version)
}

// sameCost compares two breakdowns field by field, absorbing
// floating-point noise in the amounts.
func sameCost(a, b domain.CostBreakdown) bool {
	if a.Mode != b.Mode || a.Nights != b.Nights || a.PerPersonMultiplier != b.PerPersonMultiplier {
		return false
	}
	amounts := [][2]float64{
		{a.GroundTransportCost, b.GroundTransportCost},
		{a.TollCost, b.TollCost},
		{a.ParkingCost, b.ParkingCost},
		{a.AirFareCost, b.AirFareCost},
		{a.AirportTaxCost, b.AirportTaxCost},
		{a.LodgingCost, b.LodgingCost},
		{a.MealCost, b.MealCost},
		{a.TotalDistanceKm, b.TotalDistanceKm},
		{a.EstimatedHours, b.EstimatedHours},
	}
	for _, p := range amounts {
		if math.Abs(p[0]-p[1]) > costEpsilon {
			return false
		}
	}
	return true
}

// eligibilityClient falls back to the first destination's client.
func eligibilityClient(d domain.TripDraft) int64 {
	if d.ClientID != 0 {
		return d.ClientID
	}
	for _, dest := range d.Destinations {
		if dest.ClientID != 0 {
			return dest.ClientID
		}
	}
	return 0
}
