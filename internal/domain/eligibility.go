package domain

type RuleClass string

const (
	RuleObligatory  RuleClass = "obligatory"
	RuleRecommended RuleClass = "recommended"
)

// Historical facts about a client, supplied fresh by the record store.
// Nil day counters mean the event never happened.
type ClientFacts struct {
	ClientID             int64   `json:"client_id"`
	LastProposalDaysAgo  *int    `json:"last_proposal_days_ago"`
	LastVisitDaysAgo     *int    `json:"last_visit_days_ago"`
	CumulativeSalesValue float64 `json:"cumulative_sales_value"`
	TrailingTripCost     float64 `json:"trailing_trip_cost"`
	TrailingRevenue      float64 `json:"trailing_revenue"`
}

// Per-rule evaluation record.
type EligibilityVerdict struct {
	RuleID        string    `json:"rule_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Class         RuleClass `json:"class"`
	Satisfied     bool      `json:"satisfied"`
	Observed      *float64  `json:"observed,omitempty"`
	DaysSinceLast *int      `json:"days_since_last,omitempty"`
}

type EligibilityReport struct {
	ClientID int64                `json:"client_id"`
	Verdicts []EligibilityVerdict `json:"verdicts"`
}

// MayProceedWithoutOverride is the AND over obligatory rules.
// Recommended failures never change it.
func (r EligibilityReport) MayProceedWithoutOverride() bool {
	for _, v := range r.Verdicts {
		if v.Class == RuleObligatory && !v.Satisfied {
			return false
		}
	}
	return true
}

// FailedRules lists rule ids that were not satisfied, restricted to class
// when class is non-empty.
func (r EligibilityReport) FailedRules(class RuleClass) []string {
	out := []string{}
	for _, v := range r.Verdicts {
		if v.Satisfied {
			continue
		}
		if class != "" && v.Class != class {
			continue
		}
		out = append(out, v.RuleID)
	}
	return out
}
