package services

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"travel-route-service/internal/domain"
)

// TollBand applies Cost to ground trips up to UpToKm.
type TollBand struct {
	UpToKm float64 `yaml:"up_to_km"`
	Cost   float64 `yaml:"cost"`
}

// FareBand prices one flight leg per person up to UpToKm of one-way distance.
type FareBand struct {
	UpToKm        float64 `yaml:"up_to_km"`
	FarePerPerson float64 `yaml:"fare_per_person"`
}

// CostRates is business configuration; only the shape of the computation
// is fixed in code.
type CostRates struct {
	FuelCostPerKm        float64    `yaml:"fuel_cost_per_km"`
	TollBands            []TollBand `yaml:"toll_bands"`
	ParkingFee           float64    `yaml:"parking_fee"`
	AirFareBands         []FareBand `yaml:"air_fare_bands"`
	AirportTaxPerPerson  float64    `yaml:"airport_tax_per_person"`
	NightlyRate          float64    `yaml:"nightly_rate"`
	DailyMealRate        float64    `yaml:"daily_meal_rate"`
	GroundSpeedKmh       float64    `yaml:"ground_speed_kmh"`
	AirSpeedKmh          float64    `yaml:"air_speed_kmh"`
	AirportOverheadHours float64    `yaml:"airport_overhead_hours"`
}

func DefaultCostRates() CostRates {
	return CostRates{
		FuelCostPerKm: 0.85,
		TollBands: []TollBand{
			{UpToKm: 50, Cost: 0},
			{UpToKm: 150, Cost: 18.50},
			{UpToKm: 300, Cost: 42},
			{UpToKm: 600, Cost: 85},
		},
		ParkingFee: 40,
		AirFareBands: []FareBand{
			{UpToKm: 1000, FarePerPerson: 650},
			{UpToKm: 2000, FarePerPerson: 950},
			{UpToKm: 5000, FarePerPerson: 1400},
		},
		AirportTaxPerPerson:  45,
		NightlyRate:          280,
		DailyMealRate:        95,
		GroundSpeedKmh:       80,
		AirSpeedKmh:          700,
		AirportOverheadHours: 2.5,
	}
}

// SelectTravelMode flies strictly above domain.AirThresholdKm.
func SelectTravelMode(totalKm float64) domain.TravelMode {
	if totalKm > domain.AirThresholdKm {
		return domain.TravelAir
	}
	return domain.TravelGround
}

// CostModel prices a trip from its resolved coordinates.
type CostModel struct {
	rates CostRates
}

// NewCostModel copies the rate bands and sorts them by distance.
func NewCostModel(rates CostRates) *CostModel {
	rates.TollBands = slices.Clone(rates.TollBands)
	slices.SortFunc(rates.TollBands, func(a, b TollBand) int { return cmp.Compare(a.UpToKm, b.UpToKm) })

	rates.AirFareBands = slices.Clone(rates.AirFareBands)
	slices.SortFunc(rates.AirFareBands, func(a, b FareBand) int { return cmp.Compare(a.UpToKm, b.UpToKm) })

	return &CostModel{rates: rates}
}

// Estimate orders the stops, derives the trip distance and prices it.
//
// Round trips count the closing leg back to origin; for a single
// destination that is exactly twice the one-way distance.
// Calling Estimate without validated destinations is a programmer error.
func (m *CostModel) Estimate(
	draft domain.TripDraft,
	origin domain.Coordinates,
	stops []domain.Coordinates,
) (domain.CostBreakdown, *domain.RouteResult, error) {
	if len(draft.Destinations) == 0 || len(stops) == 0 {
		return domain.CostBreakdown{}, nil, fmt.Errorf("estimate: no destinations: %w", domain.ErrPreconditionViolated)
	}
	if len(stops) != len(draft.Destinations) {
		return domain.CostBreakdown{}, nil, fmt.Errorf(
			"estimate: %d coordinates for %d destinations: %w",
			len(stops), len(draft.Destinations), domain.ErrPreconditionViolated,
		)
	}
	for i, d := range draft.Destinations {
		if !d.HasPlace() {
			return domain.CostBreakdown{}, nil, fmt.Errorf("estimate: destination %d has no city or region: %w", i, domain.ErrPreconditionViolated)
		}
	}
	if draft.Headcount < 0 {
		return domain.CostBreakdown{}, nil, fmt.Errorf("estimate: headcount %d: %w", draft.Headcount, domain.ErrPreconditionViolated)
	}

	route, err := NearestNeighborRoute(origin, stops)
	if err != nil {
		return domain.CostBreakdown{}, nil, fmt.Errorf("estimate: %w", err)
	}

	totalKm := route.OpenDistanceKm
	if draft.IsRoundTrip() {
		totalKm = route.RoundTripKm()
	}

	return m.priceDistance(draft, totalKm), route, nil
}

// priceDistance computes the breakdown for a known trip distance.
func (m *CostModel) priceDistance(draft domain.TripDraft, totalKm float64) domain.CostBreakdown {
	headcount := draft.EffectiveHeadcount()
	hc := float64(headcount)

	legs := 1.0
	if draft.IsRoundTrip() {
		legs = 2
	}

	b := domain.CostBreakdown{
		TotalDistanceKm:     math.Max(0, totalKm),
		Mode:                SelectTravelMode(totalKm),
		PerPersonMultiplier: headcount,
	}

	switch {
	case totalKm <= 0:
		// Nothing to travel: ground mode, no transport cost.
		b.Mode = domain.TravelGround
	case b.Mode == domain.TravelAir:
		oneWayKm := totalKm / legs
		b.AirFareCost = m.fareFor(oneWayKm) * hc * legs
		b.AirportTaxCost = m.rates.AirportTaxPerPerson * hc * legs
		b.EstimatedHours = totalKm/m.rates.AirSpeedKmh + m.rates.AirportOverheadHours*legs
	default:
		b.GroundTransportCost = totalKm * m.rates.FuelCostPerKm
		b.TollCost = m.tollFor(totalKm)
		b.ParkingCost = m.rates.ParkingFee
		b.EstimatedHours = totalKm / m.rates.GroundSpeedKmh
	}

	nights := draft.Nights()
	days := max(1, nights+1)

	b.Nights = nights
	b.LodgingCost = m.rates.NightlyRate * float64(nights) * hc
	b.MealCost = m.rates.DailyMealRate * float64(days) * hc

	return b
}

// tollFor picks the first band covering km; longer trips use the last band.
func (m *CostModel) tollFor(km float64) float64 {
	bands := m.rates.TollBands
	if len(bands) == 0 {
		return 0
	}
	for _, b := range bands {
		if km <= b.UpToKm {
			return b.Cost
		}
	}
	return bands[len(bands)-1].Cost
}

func (m *CostModel) fareFor(oneWayKm float64) float64 {
	bands := m.rates.AirFareBands
	if len(bands) == 0 {
		return 0
	}
	for _, b := range bands {
		if oneWayKm <= b.UpToKm {
			return b.FarePerPerson
		}
	}
	return bands[len(bands)-1].FarePerPerson
}
