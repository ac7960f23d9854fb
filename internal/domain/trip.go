package domain

import (
	"strings"
	"time"
)

type TripKind string

const (
	TripOneWay    TripKind = "one-way"
	TripRoundTrip TripKind = "round-trip"
)

// TripDraft is the unit of work flowing through the engine.
// The planner attaches Route and Cost; nothing else mutates it.
type TripDraft struct {
	// Key addresses the authorization decision for this draft.
	Key          string               `json:"key"`
	ClientID     int64                `json:"client_id"`
	Origin       LocationDescriptor   `json:"origin"`
	Destinations []LocationDescriptor `json:"destinations"`
	Kind         TripKind             `json:"kind"`
	Headcount    int                  `json:"headcount"`
	DepartAt     time.Time            `json:"depart_at"`
	ReturnAt     *time.Time           `json:"return_at,omitempty"`

	Route *RouteResult   `json:"route,omitempty"`
	Cost  *CostBreakdown `json:"cost,omitempty"`
}

func (d TripDraft) IsRoundTrip() bool { return d.Kind == TripRoundTrip }

// EffectiveHeadcount defaults an omitted headcount to 1.
func (d TripDraft) EffectiveHeadcount() int {
	if d.Headcount == 0 {
		return 1
	}
	return d.Headcount
}

// Nights is the whole number of calendar days between departure and
// return for round trips with distinct dates, else 0.
func (d TripDraft) Nights() int {
	if !d.IsRoundTrip() || d.ReturnAt == nil {
		return 0
	}
	dep := truncateDay(d.DepartAt)
	ret := truncateDay(*d.ReturnAt)
	days := int(ret.Sub(dep).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func trimmed(s string) string { return strings.TrimSpace(s) }
