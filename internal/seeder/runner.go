package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/flowline-analytics/flowline/internal/models"
)

// Runner delivers generated events to a running flowline instance over its
// ingestion endpoint.
type Runner struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewRunner creates a runner targeting the given API base URL.
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Run generates the scenario's events and posts them one by one, logging
// progress as it goes. Returns the number of events accepted.
func (r *Runner) Run(ctx context.Context, scenario *Scenario, seed int64) (int, error) {
	gen := NewGenerator(scenario, seed)
	events := gen.Generate()

	log.Printf("Seeding %d events across %d locations (%s, %d days)",
		len(events), len(scenario.Locations), scenario.StartDate, scenario.Days)

	successCount := 0
	failCount := 0
	progressInterval := len(events) / 10
	if progressInterval < 100 {
		progressInterval = 100
	}

	for i, ev := range events {
		if err := r.send(ctx, &ev); err != nil {
			failCount++
			if failCount == 1 {
				log.Printf("First delivery failure: %v", err)
			}
		} else {
			successCount++
		}
		if (i+1)%progressInterval == 0 {
			log.Printf("Progress: %d/%d events sent", i+1, len(events))
		}
	}

	log.Printf("Seeding complete: %d accepted, %d failed", successCount, failCount)
	if successCount == 0 && len(events) > 0 {
		return 0, fmt.Errorf("no events accepted by %s", r.BaseURL)
	}
	return successCount, nil
}

func (r *Runner) send(ctx context.Context, ev *models.OperationalEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.BaseURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server rejected event: %s: %s", resp.Status, msg)
	}
	return nil
}
