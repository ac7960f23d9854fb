package dto

import "travel-route-service/internal/domain"

type RouteStopResponse struct {
	Index    int     `json:"index"`
	City     string  `json:"city"`
	State    string  `json:"state"`
	ClientID int64   `json:"client_id,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	LegKm    float64 `json:"leg_km"`
}

type CostResponse struct {
	domain.CostBreakdown
	TotalCost float64 `json:"total_cost"`
}

type RouteResponse struct {
	Origin         domain.Coordinates  `json:"origin"`
	Stops          []RouteStopResponse `json:"stops"`
	OpenDistanceKm float64             `json:"open_distance_km"`
	ClosingLegKm   float64             `json:"closing_leg_km"`
	Bounds         domain.Box          `json:"bounds"`
	Cost           CostResponse        `json:"cost"`
}
