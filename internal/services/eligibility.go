package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/platform/obs"
	"travel-route-service/internal/ports"
)

// Stable rule identifiers.
const (
	RuleMinDaysSinceProposal = "min-days-since-last-proposal"
	RuleMinSalesVolume       = "min-sales-volume"
	RuleMaxCostToRevenue     = "max-cost-to-revenue"
	RuleMinDaysSinceVisit    = "min-days-since-last-visit"
)

// RuleSetting classifies a rule and sets its threshold.
type RuleSetting struct {
	Class     domain.RuleClass `yaml:"class"`
	Threshold float64          `yaml:"threshold"`
}

type RuleSettings map[string]RuleSetting

func DefaultRuleSettings() RuleSettings {
	return RuleSettings{
		RuleMinDaysSinceProposal: {Class: domain.RuleObligatory, Threshold: 30},
		RuleMinSalesVolume:       {Class: domain.RuleRecommended, Threshold: 50000},
		RuleMaxCostToRevenue:     {Class: domain.RuleRecommended, Threshold: 0.15},
		RuleMinDaysSinceVisit:    {Class: domain.RuleRecommended, Threshold: 15},
	}
}

type ruleCheck func(f domain.ClientFacts, d domain.TripDraft, threshold float64) (ok bool, observed *float64, daysSince *int)

type rule struct {
	id          string
	name        string
	description string
	check       ruleCheck
}

// rules is the fixed, enumerable rule set; only classification and
// thresholds come from configuration.
var rules = []rule{
	{
		id:          RuleMinDaysSinceProposal,
		name:        "Minimum days since last proposal",
		description: "A new proposal trip needs a minimum gap since the previous proposal to the client.",
		check: func(f domain.ClientFacts, _ domain.TripDraft, threshold float64) (bool, *float64, *int) {
			return minDaysSince(f.LastProposalDaysAgo, threshold)
		},
	},
	{
		id:          RuleMinSalesVolume,
		name:        "Minimum cumulative sales volume",
		description: "The client should have reached a minimum cumulative sales value.",
		check: func(f domain.ClientFacts, _ domain.TripDraft, threshold float64) (bool, *float64, *int) {
			v := f.CumulativeSalesValue
			return v >= threshold, &v, nil
		},
	},
	{
		id:          RuleMaxCostToRevenue,
		name:        "Maximum travel cost to revenue ratio",
		description: "Trailing travel cost plus this trip should stay under a share of trailing revenue.",
		check: func(f domain.ClientFacts, d domain.TripDraft, threshold float64) (bool, *float64, *int) {
			cost := f.TrailingTripCost
			if d.Cost != nil {
				cost += d.Cost.Total()
			}
			if f.TrailingRevenue <= 0 {
				return cost <= 0, nil, nil
			}
			ratio := cost / f.TrailingRevenue
			return ratio <= threshold, &ratio, nil
		},
	},
	{
		id:          RuleMinDaysSinceVisit,
		name:        "Minimum days since last visit",
		description: "Visits to the same client should be spaced out.",
		check: func(f domain.ClientFacts, _ domain.TripDraft, threshold float64) (bool, *float64, *int) {
			return minDaysSince(f.LastVisitDaysAgo, threshold)
		},
	},
}

// A client with no prior event satisfies a minimum-gap rule.
func minDaysSince(days *int, threshold float64) (bool, *float64, *int) {
	if days == nil {
		return true, nil, nil
	}
	d := *days
	v := float64(d)
	return v >= threshold, &v, &d
}

// EligibilityEngine evaluates the rule set against fresh client facts on
// every call; nothing is cached between calls.
type EligibilityEngine struct {
	store    ports.RecordStore
	settings RuleSettings
	timeout  time.Duration
}

func NewEligibilityEngine(store ports.RecordStore, settings RuleSettings, timeout time.Duration) *EligibilityEngine {
	merged := DefaultRuleSettings()
	for id, s := range settings {
		merged[id] = s
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EligibilityEngine{store: store, settings: merged, timeout: timeout}
}

// Evaluate fetches the client's facts and returns one verdict per rule.
// Store failures surface as domain.ErrStoreUnavailable, never as a pass.
func (e *EligibilityEngine) Evaluate(ctx context.Context, clientID int64, draft domain.TripDraft) (_ domain.EligibilityReport, err error) {
	defer obs.Time(ctx, "eligibility.Evaluate")(&err)

	if clientID == 0 {
		return domain.EligibilityReport{}, fmt.Errorf("evaluate eligibility: client id must be set: %w", domain.ErrPreconditionViolated)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	facts, err := e.store.GetClientFacts(ctx, clientID)
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) || errors.Is(err, domain.ErrStoreUnavailable) {
			return domain.EligibilityReport{}, fmt.Errorf("evaluate eligibility: client_id=%d: %w", clientID, err)
		}
		return domain.EligibilityReport{}, fmt.Errorf("evaluate eligibility: client_id=%d: %w: %w", clientID, domain.ErrStoreUnavailable, err)
	}

	report := domain.EligibilityReport{
		ClientID: clientID,
		Verdicts: make([]domain.EligibilityVerdict, 0, len(rules)),
	}
	for _, r := range rules {
		s := e.settings[r.id]
		ok, observed, days := r.check(facts, draft, s.Threshold)
		report.Verdicts = append(report.Verdicts, domain.EligibilityVerdict{
			RuleID:        r.id,
			Name:          r.name,
			Description:   r.description,
			Class:         s.Class,
			Satisfied:     ok,
			Observed:      observed,
			DaysSinceLast: days,
		})
	}

	return report, nil
}
