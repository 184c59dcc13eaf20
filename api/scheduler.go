/*
scheduler.go - Scheduled pipeline runs

PURPOSE:
  Triggers pipeline runs on a fixed interval so the warehouse keeps
  tracking the cleaned sources without manual POST /api/runs calls.

DESIGN:
  - Thin wrapper around gocron; the scheduler owns no pipeline logic
  - Each tick executes a full run as of today's date
  - A failed scheduled run is logged and recorded in the run log;
    the next tick proceeds normally
  - Stop() blocks until no scheduled run is mid-flight

CONFIGURATION:
  - Interval: How often to run (zero disables the scheduler)

USAGE:
  scheduler := NewRunScheduler(runner, 6*time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRun endpoint (manual runs)
  - pipeline/runner.go: Run execution
*/
package api

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/pipeline"
)

// RunScheduler executes pipeline runs on an interval.
type RunScheduler struct {
	Runner   *pipeline.Runner
	Interval time.Duration

	scheduler *gocron.Scheduler
}

// NewRunScheduler creates a scheduler. A zero interval disables it.
func NewRunScheduler(runner *pipeline.Runner, interval time.Duration) *RunScheduler {
	return &RunScheduler{Runner: runner, Interval: interval}
}

// Start begins scheduled execution.
func (rs *RunScheduler) Start() {
	if rs.Interval <= 0 {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.scheduler = gocron.NewScheduler(time.UTC)
	_, err := rs.scheduler.Every(rs.Interval).Do(rs.runOnce)
	if err != nil {
		log.Printf("[Scheduler] Failed to configure: %v", err)
		rs.scheduler = nil
		return
	}

	rs.scheduler.StartAsync()
	log.Printf("[Scheduler] Started with interval: %v", rs.Interval)
}

// Stop stops the scheduler and waits for a running job to finish.
func (rs *RunScheduler) Stop() {
	if rs.scheduler != nil {
		rs.scheduler.Stop()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RunScheduler) runOnce() {
	ctx := context.Background()

	// Zero date means today.
	result, err := rs.Runner.Run(ctx, dimensional.Date{})
	if err != nil {
		log.Printf("[Scheduler] Run failed: %v", err)
		return
	}
	log.Printf("[Scheduler] Run %s completed for %s", result.RunID, result.RunDate)
}
