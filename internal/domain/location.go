package domain

// LocationDescriptor is resolver input. It is never mutated after creation.
type LocationDescriptor struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Address string `json:"address,omitempty"`
	// ClientID is 0 when the location is not tied to a client.
	ClientID int64 `json:"client_id,omitempty"`
	// Resolved carries a previously resolved or exact coordinate.
	Resolved *Coordinates `json:"resolved,omitempty"`
}

// HasPlace reports whether the descriptor names a city or a region.
func (l LocationDescriptor) HasPlace() bool {
	return trimmed(l.City) != "" || trimmed(l.State) != ""
}
