// Command estimate prices a trip draft offline, using the static
// coordinate tables only.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"travel-route-service/internal/config"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/geo"
	"travel-route-service/internal/platform/obs"
	"travel-route-service/internal/services"

	"github.com/google/uuid"
	"github.com/kr/pretty"
)

type resolvedLocation struct {
	Label string
	Tier  string
	At    domain.Coordinates
}

type estimate struct {
	Mode      domain.TravelMode
	Distance  float64
	TotalCost float64
	Locations []resolvedLocation
	Route     domain.RouteResult
	Breakdown domain.CostBreakdown
}

func main() {
	draftPath := flag.String("draft", "", "trip draft JSON file")
	enginePath := flag.String("config", config.Get("ENGINE_CONFIG", ""), "engine YAML overriding the compiled-in tables")
	flag.Parse()

	if *draftPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	res, err := run(*draftPath, *enginePath)
	if err != nil {
		log.Fatal(err)
	}
	pretty.Println(res)
}

func run(draftPath, enginePath string) (*estimate, error) {
	engineCfg, err := config.LoadEngine(enginePath)
	if err != nil {
		return nil, err
	}

	tables, err := geo.LoadTables(config.Get("CITIES_CSV", ""), config.Get("REGIONS_CSV", ""))
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(draftPath)
	if err != nil {
		return nil, fmt.Errorf("estimate: read %q: %w", draftPath, err)
	}

	var draft domain.TripDraft
	if err := json.Unmarshal(b, &draft); err != nil {
		return nil, fmt.Errorf("estimate: parse %q: %w", draftPath, err)
	}
	if !draft.Origin.HasPlace() && draft.Origin.Resolved == nil {
		draft.Origin = domain.LocationDescriptor{City: engineCfg.Home.Name, State: engineCfg.Home.Region}
	}

	ctx := obs.WithRequestID(context.Background(), "estimate-"+uuid.NewString())

	resolver := services.NewCoordinateResolver(tables, engineCfg.Home)
	planner := services.NewTripPlanner(resolver, services.NewCostModel(engineCfg.Rates))

	plan, err := planner.ComputeRoute(ctx, draft)
	if err != nil {
		return nil, err
	}

	locs := append([]domain.LocationDescriptor{draft.Origin}, draft.Destinations...)
	out := &estimate{
		Mode:      plan.Cost.Mode,
		Distance:  plan.Cost.TotalDistanceKm,
		TotalCost: plan.Cost.Total(),
		Route:     plan.Route,
		Breakdown: plan.Cost,
	}
	for _, l := range locs {
		c, tier := resolver.ResolveTier(ctx, l)
		out.Locations = append(out.Locations, resolvedLocation{
			Label: fmt.Sprintf("%s/%s", l.City, l.State),
			Tier:  tier,
			At:    c,
		})
	}

	return out, nil
}
