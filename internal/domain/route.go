package domain

// Represents a single visited stop in an optimized route.
// Index points back into the stop list handed to the optimizer.
type RouteStop struct {
	Index       int                `json:"index"`
	Location    LocationDescriptor `json:"location"`
	Coordinates Coordinates        `json:"coordinates"`
	LegKm       float64            `json:"leg_km"`
}

// Bounding box of a set of coordinates.
type Box struct {
	Min Coordinates `json:"min"`
	Max Coordinates `json:"max"`
}

// Represents the visiting order produced by the route optimizer.
// The route always starts at Origin. OpenDistanceKm is the sum of the
// stop legs; the closing leg back to Origin is kept separately so callers
// decide whether to count it.
type RouteResult struct {
	Origin         Coordinates `json:"origin"`
	Stops          []RouteStop `json:"stops"`
	OpenDistanceKm float64     `json:"open_distance_km"`
	ClosingLegKm   float64     `json:"closing_leg_km"`
	Bounds         Box         `json:"bounds"`
}

// RoundTripKm includes the closing leg.
func (r RouteResult) RoundTripKm() float64 { return r.OpenDistanceKm + r.ClosingLegKm }
