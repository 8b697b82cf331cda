package seeder

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowline-analytics/flowline/internal/models"
)

// Scenario describes a synthetic traffic profile for one or more locations.
// Scenarios are loaded from YAML files; every field has a sensible default
// so a minimal file only needs to name its locations.
type Scenario struct {
	Version                  string            `yaml:"version"`
	StartDate                string            `yaml:"start_date"`
	Days                     int               `yaml:"days"`
	ObservationPeriodSeconds float64           `yaml:"observation_period_seconds"`
	OpenHour                 int               `yaml:"open_hour"`
	CloseHour                int               `yaml:"close_hour"`
	Locations                []LocationProfile `yaml:"locations"`
}

// LocationProfile describes the traffic shape of a single service point.
type LocationProfile struct {
	ID                 string              `yaml:"id"`
	Type               models.LocationType `yaml:"type"`
	Servers            int                 `yaml:"servers"`
	ArrivalsPerHour    float64             `yaml:"arrivals_per_hour"`
	Peaks              []PeakWindow        `yaml:"peaks"`
	ServiceMeanSeconds float64             `yaml:"service_mean_seconds"`
	ServiceCV          float64             `yaml:"service_cv"`
}

// PeakWindow boosts the arrival rate for one hour of the day.
type PeakWindow struct {
	Hour       int     `yaml:"hour"`
	Multiplier float64 `yaml:"multiplier"`
}

// DefaultScenario returns a week of traffic across a typical deployment,
// used when no scenario file is given.
func DefaultScenario() *Scenario {
	s := &Scenario{
		Version:                  "1",
		Days:                     7,
		ObservationPeriodSeconds: 300,
		OpenHour:                 8,
		CloseHour:                20,
		Locations: []LocationProfile{
			{
				ID: "front_desk", Type: models.LocationFrontDesk, Servers: 3,
				ArrivalsPerHour: 18, ServiceMeanSeconds: 240, ServiceCV: 0.6,
				Peaks: []PeakWindow{{Hour: 9, Multiplier: 2.5}, {Hour: 16, Multiplier: 3.0}},
			},
			{
				ID: "restaurant", Type: models.LocationRestaurant, Servers: 4,
				ArrivalsPerHour: 24, ServiceMeanSeconds: 300, ServiceCV: 0.8,
				Peaks: []PeakWindow{{Hour: 12, Multiplier: 2.8}, {Hour: 19, Multiplier: 2.2}},
			},
			{
				ID: "valet", Type: models.LocationValet, Servers: 2,
				ArrivalsPerHour: 8, ServiceMeanSeconds: 180, ServiceCV: 1.1,
				Peaks: []PeakWindow{{Hour: 8, Multiplier: 2.0}, {Hour: 18, Multiplier: 2.4}},
			},
		},
	}
	s.StartDate = time.Now().UTC().AddDate(0, 0, -s.Days).Format("2006-01-02")
	return s
}

// LoadScenario reads a scenario file and fills in defaults for omitted
// fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	s.applyDefaults()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) applyDefaults() {
	def := DefaultScenario()
	if s.Days <= 0 {
		s.Days = def.Days
	}
	if s.StartDate == "" {
		s.StartDate = time.Now().UTC().AddDate(0, 0, -s.Days).Format("2006-01-02")
	}
	if s.ObservationPeriodSeconds <= 0 {
		s.ObservationPeriodSeconds = def.ObservationPeriodSeconds
	}
	if s.CloseHour <= s.OpenHour {
		s.OpenHour = def.OpenHour
		s.CloseHour = def.CloseHour
	}
	if len(s.Locations) == 0 {
		s.Locations = def.Locations
	}
	for i := range s.Locations {
		loc := &s.Locations[i]
		if loc.Servers <= 0 {
			loc.Servers = 1
		}
		if loc.ArrivalsPerHour <= 0 {
			loc.ArrivalsPerHour = 10
		}
		if loc.ServiceMeanSeconds <= 0 {
			loc.ServiceMeanSeconds = 240
		}
		if loc.ServiceCV <= 0 {
			loc.ServiceCV = 0.5
		}
	}
}

// Validate checks the scenario for fields that would produce garbage data.
func (s *Scenario) Validate() error {
	if _, err := time.Parse("2006-01-02", s.StartDate); err != nil {
		return fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", s.StartDate)
	}
	for _, loc := range s.Locations {
		if loc.ID == "" {
			return fmt.Errorf("scenario location missing id")
		}
		if !models.ValidLocationType(loc.Type) {
			return fmt.Errorf("location %s: unknown type %q", loc.ID, loc.Type)
		}
		for _, p := range loc.Peaks {
			if p.Hour < 0 || p.Hour > 23 {
				return fmt.Errorf("location %s: peak hour %d out of range", loc.ID, p.Hour)
			}
		}
	}
	return nil
}

func (l LocationProfile) hourMultiplier(hour int) float64 {
	for _, p := range l.Peaks {
		if p.Hour == hour {
			return p.Multiplier
		}
	}
	return 1.0
}
