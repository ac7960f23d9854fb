package dto

import "travel-route-service/internal/domain"

type EligibilityResponse struct {
	ClientID                  int64                       `json:"client_id"`
	MayProceedWithoutOverride bool                        `json:"may_proceed_without_override"`
	Verdicts                  []domain.EligibilityVerdict `json:"verdicts"`
}

type DecisionResponse struct {
	domain.AuthorizationDecision
	AwaitingAir      bool `json:"awaiting_air_confirmation"`
	AwaitingOverride bool `json:"awaiting_override"`
	Persistable      bool `json:"persistable"`
}

type SubmitResponse struct {
	Route       RouteResponse        `json:"route"`
	Eligibility *EligibilityResponse `json:"eligibility,omitempty"`
	Decision    DecisionResponse     `json:"decision"`
}

type AuditLogResponse struct {
	DraftKey string              `json:"draft_key"`
	Entries  []domain.AuditEntry `json:"entries"`
}
