package dto

import "time"

type LocationRequest struct {
	City     string   `json:"city"`
	State    string   `json:"state"`
	Address  string   `json:"address"`
	ClientID int64    `json:"client_id"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

// DraftRequest omits the key; it comes from the URL. A missing origin
// means the company's home city.
type DraftRequest struct {
	ClientID     int64             `json:"client_id"`
	Origin       *LocationRequest  `json:"origin"`
	Destinations []LocationRequest `json:"destinations"`
	Kind         string            `json:"kind"`
	Headcount    int               `json:"headcount"`
	DepartAt     *time.Time        `json:"depart_at"`
	ReturnAt     *time.Time        `json:"return_at"`
}

type SubmitRequest struct {
	Draft  DraftRequest `json:"draft"`
	IsEdit bool         `json:"is_edit"`
}

type EligibilityRequest struct {
	ClientID int64         `json:"client_id"`
	Draft    *DraftRequest `json:"draft"`
}

type OverrideRequest struct {
	Justification string `json:"justification"`
}
