package domain

import (
	"testing"
	"time"
)

func TestNights(t *testing.T) {
	depart := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	sameDay := time.Date(2026, 5, 4, 23, 0, 0, 0, time.UTC)
	nextMorning := time.Date(2026, 5, 5, 7, 0, 0, 0, time.UTC)
	threeLater := time.Date(2026, 5, 7, 9, 0, 0, 0, time.UTC)
	before := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		d    TripDraft
		want int
	}{
		{"one-way ignores return", TripDraft{Kind: TripOneWay, DepartAt: depart, ReturnAt: &threeLater}, 0},
		{"round trip without return", TripDraft{Kind: TripRoundTrip, DepartAt: depart}, 0},
		{"same day", TripDraft{Kind: TripRoundTrip, DepartAt: depart, ReturnAt: &sameDay}, 0},
		{"calendar day counts", TripDraft{Kind: TripRoundTrip, DepartAt: depart, ReturnAt: &nextMorning}, 1},
		{"three nights", TripDraft{Kind: TripRoundTrip, DepartAt: depart, ReturnAt: &threeLater}, 3},
		{"return before departure", TripDraft{Kind: TripRoundTrip, DepartAt: depart, ReturnAt: &before}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.d.Nights(); got != tc.want {
				t.Fatalf("Nights() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestEffectiveHeadcount(t *testing.T) {
	if got := (TripDraft{}).EffectiveHeadcount(); got != 1 {
		t.Fatalf("default headcount = %d, want 1", got)
	}
	if got := (TripDraft{Headcount: 3}).EffectiveHeadcount(); got != 3 {
		t.Fatalf("headcount = %d, want 3", got)
	}
}

func TestCostTotalByMode(t *testing.T) {
	b := CostBreakdown{
		GroundTransportCost: 100, TollCost: 10, ParkingCost: 5,
		AirFareCost: 1000, AirportTaxCost: 50,
		LodgingCost: 200, MealCost: 20,
	}

	b.Mode = TravelGround
	if got := b.Total(); got != 335 {
		t.Fatalf("ground total = %v, want 335", got)
	}
	b.Mode = TravelAir
	if got := b.Total(); got != 1270 {
		t.Fatalf("air total = %v, want 1270", got)
	}
}

func TestHasPlace(t *testing.T) {
	if (LocationDescriptor{City: "  "}).HasPlace() {
		t.Fatalf("blank city is not a place")
	}
	if !(LocationDescriptor{State: "MG"}).HasPlace() {
		t.Fatalf("region alone is a place")
	}
}
