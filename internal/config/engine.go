package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"travel-route-service/internal/domain"
	"travel-route-service/internal/services"
)

// EngineConfig is the business configuration of the estimator: cost
// tables, rule classification and the home city reference.
type EngineConfig struct {
	Rates services.CostRates    `yaml:"rates"`
	Rules services.RuleSettings `yaml:"rules"`
	Home  services.HomeCity     `yaml:"home"`
}

// DefaultEngine returns the compiled-in configuration.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		Rates: services.DefaultCostRates(),
		Rules: services.DefaultRuleSettings(),
		Home:  services.DefaultHomeCity(),
	}
}

// LoadEngine overlays the YAML file at path onto the defaults. An empty
// path returns the defaults.
func LoadEngine(path string) (EngineConfig, error) {
	cfg := DefaultEngine()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("load engine config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("load engine config: parse %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, fmt.Errorf("load engine config %q: %w", path, err)
	}

	return cfg, nil
}

func (c EngineConfig) Validate() error {
	if len(c.Rates.TollBands) == 0 {
		return errors.New("rates.toll_bands must not be empty")
	}
	if len(c.Rates.AirFareBands) == 0 {
		return errors.New("rates.air_fare_bands must not be empty")
	}
	if c.Rates.GroundSpeedKmh <= 0 || c.Rates.AirSpeedKmh <= 0 {
		return errors.New("rates: speeds must be positive")
	}
	for id, r := range c.Rules {
		if r.Class != domain.RuleObligatory && r.Class != domain.RuleRecommended {
			return fmt.Errorf("rules.%s: class must be %q or %q, got %q", id, domain.RuleObligatory, domain.RuleRecommended, r.Class)
		}
	}
	home := domain.Coordinates{Lat: c.Home.Lat, Lon: c.Home.Lon}
	if err := home.Validate(); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	return nil
}
