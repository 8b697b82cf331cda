package seeder

import (
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/flowline-analytics/flowline/internal/models"
)

// Generator turns a scenario into a stream of operational events. It keeps
// a small amount of per-location state (the simulated backlog) so queue
// lengths evolve plausibly instead of being sampled independently.
type Generator struct {
	scenario *Scenario
	backlog  map[string]float64
}

// NewGenerator creates a generator for the given scenario and seeds the
// underlying fake-data source.
func NewGenerator(s *Scenario, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Generator{
		scenario: s,
		backlog:  make(map[string]float64),
	}
}

// Generate produces events for every location and observation bucket the
// scenario covers, in chronological order.
func (g *Generator) Generate() []models.OperationalEvent {
	start, _ := time.Parse("2006-01-02", g.scenario.StartDate)
	period := g.scenario.ObservationPeriodSeconds

	var events []models.OperationalEvent
	for day := 0; day < g.scenario.Days; day++ {
		dayStart := start.AddDate(0, 0, day)
		open := dayStart.Add(time.Duration(g.scenario.OpenHour) * time.Hour)
		close := dayStart.Add(time.Duration(g.scenario.CloseHour) * time.Hour)

		for ts := open; ts.Before(close); ts = ts.Add(time.Duration(period) * time.Second) {
			for i := range g.scenario.Locations {
				events = append(events, g.bucket(&g.scenario.Locations[i], ts, period))
			}
		}
		// Queues drain overnight.
		for k := range g.backlog {
			g.backlog[k] = 0
		}
	}
	return events
}

// bucket simulates one observation period at one location.
func (g *Generator) bucket(loc *LocationProfile, ts time.Time, period float64) models.OperationalEvent {
	rate := loc.ArrivalsPerHour * loc.hourMultiplier(ts.Hour()) / 3600.0
	expected := rate * period

	// Jitter arrivals ±40% around the expected count, same spread the
	// rest of our synthetic tooling uses.
	arrivals := int(math.Round(expected * gofakeit.Float64Range(0.6, 1.4)))
	if arrivals < 0 {
		arrivals = 0
	}

	serviceMean := loc.ServiceMeanSeconds * gofakeit.Float64Range(1-loc.ServiceCV/2, 1+loc.ServiceCV/2)
	if serviceMean < 1 {
		serviceMean = 1
	}

	// Capacity during this bucket, in customers that can be served.
	capacity := float64(loc.Servers) * period / serviceMean

	backlog := g.backlog[loc.ID] + float64(arrivals)
	served := math.Min(backlog, capacity)
	departures := int(math.Round(served))
	if departures < 0 {
		departures = 0
	}
	backlog -= float64(departures)
	if backlog < 0 {
		backlog = 0
	}
	g.backlog[loc.ID] = backlog

	queue := int(math.Round(backlog))
	wait := backlog * serviceMean / float64(loc.Servers)

	ev := models.OperationalEvent{
		Timestamp:                ts.UTC(),
		LocationID:               loc.ID,
		LocationType:             loc.Type,
		ArrivalCount:             arrivals,
		DepartureCount:           departures,
		QueueLength:              queue,
		ObservationPeriodSeconds: period,
	}
	if departures > 0 {
		svc := serviceMean
		ev.ServiceTimeSeconds = &svc
	}
	if queue > 0 {
		ev.WaitTimeSeconds = &wait
	}
	return ev
}
