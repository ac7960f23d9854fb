package domain

type TravelMode string

const (
	TravelGround TravelMode = "ground"
	TravelAir    TravelMode = "air"
)

// AirThresholdKm is a hard business rule: strictly above it the trip flies.
const AirThresholdKm = 600.0

// CostBreakdown carries non-negative components. Ground components and air
// components are mutually exclusive for the selected mode.
type CostBreakdown struct {
	GroundTransportCost float64    `json:"ground_transport_cost"`
	TollCost            float64    `json:"toll_cost"`
	ParkingCost         float64    `json:"parking_cost"`
	AirFareCost         float64    `json:"air_fare_cost"`
	AirportTaxCost      float64    `json:"airport_tax_cost"`
	LodgingCost         float64    `json:"lodging_cost"`
	MealCost            float64    `json:"meal_cost"`
	TotalDistanceKm     float64    `json:"total_distance_km"`
	EstimatedHours      float64    `json:"estimated_hours"`
	Mode                TravelMode `json:"mode"`
	Nights              int        `json:"nights"`
	// PerPersonMultiplier is the headcount applied to per-person components.
	PerPersonMultiplier int `json:"per_person_multiplier"`
}

// Total sums the components applicable to the selected mode.
func (c CostBreakdown) Total() float64 {
	transport := c.GroundTransportCost + c.TollCost + c.ParkingCost
	if c.Mode == TravelAir {
		transport = c.AirFareCost + c.AirportTaxCost
	}
	return transport + c.LodgingCost + c.MealCost
}
