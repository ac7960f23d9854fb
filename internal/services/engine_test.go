package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"travel-route-service/internal/adapters/decisions"
	"travel-route-service/internal/adapters/repositories"
	"travel-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	goodClient    int64 = 101
	blockedClient int64 = 102
)

type engineFixture struct {
	engine  *Engine
	records *repositories.MemoryRecordStore
	hooks   *hookedRecords
}

// hookedRecords runs a hook before each write reaches the memory store.
// A hook error is returned instead of writing.
type hookedRecords struct {
	*repositories.MemoryRecordStore

	mu        sync.Mutex
	onPersist func() error
	onAudit   func() error
	persists  int
}

func (h *hookedRecords) PersistTrip(ctx context.Context, trip domain.TripRecord) (string, error) {
	h.mu.Lock()
	h.persists++
	hook := h.onPersist
	h.mu.Unlock()

	if hook != nil {
		if err := hook(); err != nil {
			return "", err
		}
	}
	return h.MemoryRecordStore.PersistTrip(ctx, trip)
}

func (h *hookedRecords) AppendAuditLog(ctx context.Context, draftKey string, entry domain.AuditEntry) error {
	h.mu.Lock()
	hook := h.onAudit
	h.mu.Unlock()

	if hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}
	return h.MemoryRecordStore.AppendAuditLog(ctx, draftKey, entry)
}

func (h *hookedRecords) persistCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.persists
}

func newTestEngine(t *testing.T) engineFixture {
	t.Helper()

	records := repositories.NewMemoryRecordStore(
		domain.ClientFacts{ClientID: goodClient, CumulativeSalesValue: 120000, TrailingRevenue: 200000},
		domain.ClientFacts{ClientID: blockedClient, LastProposalDaysAgo: intp(4), CumulativeSalesValue: 1000, TrailingRevenue: 200000},
	)
	hooks := &hookedRecords{MemoryRecordStore: records}
	planner := newTestPlanner(t)
	eligibility := NewEligibilityEngine(records, nil, 0)
	workflow := NewAuthorizationWorkflow(decisions.NewMemoryDecisionStore(), hooks, 0)

	return engineFixture{
		engine:  NewEngine(planner, eligibility, workflow, hooks, 0),
		records: records,
		hooks:   hooks,
	}
}

func draftTo(key string, clientID int64, city, state string) domain.TripDraft {
	return domain.TripDraft{
		Key:          key,
		ClientID:     clientID,
		Origin:       domain.LocationDescriptor{City: "São Bernardo do Campo", State: "SP"},
		Destinations: []domain.LocationDescriptor{{City: city, State: state, ClientID: clientID}},
		Kind:         domain.TripOneWay,
		DepartAt:     day(2026, 6, 1),
	}
}

func TestEngineSubmitAndPersist(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-1", goodClient, "Campinas", "SP")

	sub, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)
	require.NotNil(t, sub.Eligibility)
	assert.True(t, sub.Eligibility.MayProceedWithoutOverride())
	assert.Equal(t, domain.DecisionConfirmed, sub.Decision.State)
	assert.Equal(t, domain.TravelGround, sub.Decision.Mode)
	assert.InDelta(t, sub.Plan.Cost.TotalDistanceKm, sub.Decision.DistanceKm, 1e-9)

	d, err := f.engine.Persist(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, d.TripID)
	assert.False(t, d.MayPersist())

	rec, ok := f.records.Trip("trip-1")
	require.True(t, ok)
	assert.Equal(t, sub.Plan.Cost, rec.Cost)
	require.NotNil(t, rec.Route)
	assert.Equal(t, domain.DecisionConfirmed, rec.Decision.State)

	_, err = f.engine.Persist(ctx, draft)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "a draft is persisted once")

	_, err = f.engine.Submit(ctx, draft, false)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestEnginePersistRejectsStaleDecision(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	_, err := f.engine.Submit(ctx, draftTo("trip-2", goodClient, "Campinas", "SP"), false)
	require.NoError(t, err)

	_, err = f.engine.Persist(ctx, draftTo("trip-2", goodClient, "Rio de Janeiro", "RJ"))
	assert.ErrorIs(t, err, domain.ErrStaleDecision)

	_, ok := f.records.Trip("trip-2")
	assert.False(t, ok)
}

func TestEngineAirTripNeedsConfirmationBeforePersist(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-3", goodClient, "Brasília", "DF")

	sub, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)
	assert.Equal(t, domain.TravelAir, sub.Decision.Mode)
	assert.Equal(t, domain.DecisionPending, sub.Decision.State)

	_, err = f.engine.Persist(ctx, draft)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.engine.ConfirmAirTravel(ctx, "trip-3", "ana")
	require.NoError(t, err)

	d, err := f.engine.Persist(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, d.TripID)
}

func TestEngineBlockedClientNeedsOverride(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-4", blockedClient, "Santos", "SP")

	sub, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)
	assert.False(t, sub.Eligibility.MayProceedWithoutOverride())
	assert.Equal(t, domain.DecisionPending, sub.Decision.State)

	_, err = f.engine.OverrideEligibility(ctx, "trip-4", "", "ana")
	assert.ErrorIs(t, err, domain.ErrJustificationRequired)

	_, err = f.engine.OverrideEligibility(ctx, "trip-4", "strategic account", "ana")
	require.NoError(t, err)

	d, err := f.engine.Persist(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionOverridden, d.State)
}

func TestEngineEditSkipsEligibility(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	sub, err := f.engine.Submit(ctx, draftTo("trip-5", 999, "Santos", "SP"), true)
	require.NoError(t, err)
	assert.Nil(t, sub.Eligibility)
	assert.Equal(t, domain.DecisionConfirmed, sub.Decision.State)
}

func TestEngineSubmitFailsClosedOnStoreOutage(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	f.records.SetFail(errors.New("connection refused"))
	_, err := f.engine.Submit(ctx, draftTo("trip-6", goodClient, "Santos", "SP"), false)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = f.engine.Decision(ctx, "trip-6")
	assert.ErrorIs(t, err, domain.ErrDecisionNotFound, "no decision without eligibility")
}

func TestEngineUnknownClient(t *testing.T) {
	f := newTestEngine(t)
	_, err := f.engine.Submit(context.Background(), draftTo("trip-7", 555, "Santos", "SP"), false)
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestEnginePersistFailureLeavesDecisionUnpersisted(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-8", goodClient, "Santos", "SP")

	_, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)

	f.records.SetFail(errors.New("timeout"))
	_, err = f.engine.Persist(ctx, draft)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	d, err := f.engine.Decision(ctx, "trip-8")
	require.NoError(t, err)
	assert.Empty(t, d.TripID)
	assert.False(t, d.Persisting, "a failed write releases the reservation")
	assert.True(t, d.MayPersist())

	f.records.SetFail(nil)
	d, err = f.engine.Persist(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, d.TripID)
}

func TestEngineCancel(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-9", goodClient, "Santos", "SP")

	_, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)
	d, err := f.engine.Cancel(ctx, "trip-9")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionCancelled, d.State)

	_, err = f.engine.Persist(ctx, draft)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestEligibilityClientFallsBackToDestination(t *testing.T) {
	d := domain.TripDraft{Destinations: []domain.LocationDescriptor{{City: "A"}, {City: "B", ClientID: 8}}}
	assert.Equal(t, int64(8), eligibilityClient(d))

	d.ClientID = 3
	assert.Equal(t, int64(3), eligibilityClient(d))
}

func TestEngineSubmitRequiresKey(t *testing.T) {
	f := newTestEngine(t)
	_, err := f.engine.Submit(context.Background(), draftTo("", goodClient, "Santos", "SP"), false)
	assert.ErrorIs(t, err, domain.ErrPreconditionViolated)
}

func TestEnginePersistRejectsChangedCost(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-10", goodClient, "Santos", "SP")
	ret := day(2026, 6, 3)
	draft.Kind = domain.TripRoundTrip
	draft.ReturnAt = &ret

	sub, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)

	more := draft
	more.Headcount = 3
	_, err = f.engine.Persist(ctx, more)
	assert.ErrorIs(t, err, domain.ErrStaleDecision, "same distance and mode, more travellers")

	longer := draft
	later := day(2026, 6, 5)
	longer.ReturnAt = &later
	plan, err := f.engine.ComputeRoute(ctx, longer)
	require.NoError(t, err)
	require.InDelta(t, sub.Plan.Cost.TotalDistanceKm, plan.Cost.TotalDistanceKm, 1e-9)
	_, err = f.engine.Persist(ctx, longer)
	assert.ErrorIs(t, err, domain.ErrStaleDecision, "same distance and mode, more nights")

	_, ok := f.records.Trip("trip-10")
	assert.False(t, ok)

	d, err := f.engine.Persist(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, d.TripID)
}

func TestEngineCancelDuringPersistIsRejected(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-11", goodClient, "Santos", "SP")

	_, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)

	var cancelErr error
	f.hooks.onPersist = func() error {
		_, cancelErr = f.engine.Cancel(ctx, "trip-11")
		return nil
	}

	d, err := f.engine.Persist(ctx, draft)
	require.NoError(t, err)
	assert.ErrorIs(t, cancelErr, domain.ErrInvalidTransition)
	assert.Equal(t, domain.DecisionConfirmed, d.State)
	assert.NotEmpty(t, d.TripID)
	assert.False(t, d.Persisting)

	rec, ok := f.records.Trip("trip-11")
	require.True(t, ok)
	assert.Equal(t, domain.DecisionConfirmed, rec.Decision.State)
	assert.False(t, rec.Decision.Persisting)
}

func TestEngineResubmitDuringPersistIsRejected(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-12", goodClient, "Santos", "SP")

	sub, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)

	var submitErr error
	f.hooks.onPersist = func() error {
		_, submitErr = f.engine.Submit(ctx, draftTo("trip-12", goodClient, "Rio de Janeiro", "RJ"), false)
		return nil
	}

	d, err := f.engine.Persist(ctx, draft)
	require.NoError(t, err)
	assert.ErrorIs(t, submitErr, domain.ErrInvalidTransition)
	assert.InDelta(t, sub.Decision.DistanceKm, d.DistanceKm, 1e-9, "the persisted distance is the one authorized")

	rec, ok := f.records.Trip("trip-12")
	require.True(t, ok)
	assert.Equal(t, sub.Plan.Cost, rec.Cost)
}

func TestEnginePersistDuringPersistIsRejected(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-13", goodClient, "Santos", "SP")

	_, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)

	var innerErr error
	f.hooks.onPersist = func() error {
		f.hooks.mu.Lock()
		f.hooks.onPersist = nil
		f.hooks.mu.Unlock()
		_, innerErr = f.engine.Persist(ctx, draft)
		return nil
	}

	d, err := f.engine.Persist(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, d.TripID)
	assert.ErrorIs(t, innerErr, domain.ErrInvalidTransition)
	assert.Equal(t, 1, f.hooks.persistCalls(), "the record store sees one write")
}

func TestEngineConcurrentPersistWritesOnce(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-14", goodClient, "Santos", "SP")

	_, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Persist(ctx, draft)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t,
				errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrStaleDecision),
				"unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.hooks.persistCalls())
}

func TestEngineOverrideAuditDeliveredBeforePersist(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-15", blockedClient, "Santos", "SP")

	_, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)

	// The first append fails after a resubmit moved the decision, so the
	// override cannot be rolled back.
	f.hooks.onAudit = func() error {
		f.hooks.mu.Lock()
		f.hooks.onAudit = nil
		f.hooks.mu.Unlock()
		if _, err := f.engine.Submit(ctx, draft, false); err != nil {
			return err
		}
		return errors.New("audit log offline")
	}

	_, err = f.engine.OverrideEligibility(ctx, "trip-15", "strategic account", "ana")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	d, err := f.engine.Decision(ctx, "trip-15")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionOverridden, d.State)
	require.NotNil(t, d.PendingAudit)
	assert.Equal(t, domain.AuditEligibilityOverride, d.PendingAudit.Kind)
	assert.False(t, d.MayPersist(), "an undelivered audit entry blocks persistence")

	d, err = f.engine.Persist(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, d.TripID)
	assert.Nil(t, d.PendingAudit)

	entries, err := f.records.ListAuditLog(ctx, "trip-15")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "strategic account", entries[0].Justification)
}

func TestEnginePersistKeepsPendingAuditWhileLogIsDown(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	draft := draftTo("trip-16", blockedClient, "Santos", "SP")

	_, err := f.engine.Submit(ctx, draft, false)
	require.NoError(t, err)

	f.hooks.onAudit = func() error {
		f.hooks.mu.Lock()
		f.hooks.onAudit = func() error { return errors.New("audit log offline") }
		f.hooks.mu.Unlock()
		if _, err := f.engine.Submit(ctx, draft, false); err != nil {
			return err
		}
		return errors.New("audit log offline")
	}

	_, err = f.engine.OverrideEligibility(ctx, "trip-16", "strategic account", "ana")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = f.engine.Persist(ctx, draft)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Zero(t, f.hooks.persistCalls())

	_, ok := f.records.Trip("trip-16")
	assert.False(t, ok)
}
