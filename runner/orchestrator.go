package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lotworks/dunner/config"
	"github.com/lotworks/dunner/errors"
	"github.com/lotworks/dunner/logger"
)

// Orchestrator walks a record list one at a time. A record failure is
// tallied and the run moves on; only context cancellation stops it
// early. Everything that could abort a run (missing credentials, bad
// query files, unknown field ids) is validated by the workflows before
// Run is called.
type Orchestrator struct {
	emitter Emitter
	delay   time.Duration
	sleep   func(time.Duration)
	log     *zap.SugaredLogger
}

// New creates an orchestrator with the configured inter-record delay.
func New(emitter Emitter, pacing config.PacingConfig) *Orchestrator {
	return &Orchestrator{
		emitter: emitter,
		delay:   pacing.RecordDelay(),
		sleep:   time.Sleep,
		log:     logger.ComponentLogger("runner"),
	}
}

// SetSleep injects a fake sleeper. Used by tests.
func (o *Orchestrator) SetSleep(sleep func(time.Duration)) {
	o.sleep = sleep
}

// Run processes total records by calling step for each index in order.
// The returned stats always account for every record the run reached.
func (o *Orchestrator) Run(ctx context.Context, workflow string, total int, step func(ctx context.Context, index int) Result) Stats {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	ctx = logger.WithWorkflow(ctx, workflow)

	o.emitter.RunStarted(workflow, runID, total)
	o.log.Infow("run started",
		logger.FieldRunID, runID,
		logger.FieldWorkflow, workflow,
		logger.FieldTotalCount, total)

	started := time.Now()
	var stats Stats
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			o.log.Warnw("run canceled",
				logger.FieldRunID, runID,
				"processed", stats.Attempted,
				"remaining", total-stats.Attempted)
			break
		}

		res := step(ctx, i)
		stats.Attempted++
		switch res.Status {
		case StatusSucceeded:
			stats.Succeeded++
		case StatusIneligible:
			stats.Ineligible++
		default:
			stats.Failed++
			if errors.IsPartialFailure(res.Err) {
				stats.Partial++
			}
			o.log.Errorw("record failed",
				logger.FieldRunID, runID,
				logger.FieldLeadID, res.ID,
				logger.FieldError, res.Err)
		}
		o.emitter.RecordDone(i, total, res)

		if o.delay > 0 && i < total-1 {
			o.sleep(o.delay)
		}
	}

	o.emitter.RunFinished(stats)
	o.log.Infow("run finished",
		logger.FieldRunID, runID,
		logger.FieldWorkflow, workflow,
		logger.FieldDurationMS, time.Since(started).Milliseconds(),
		"attempted", stats.Attempted,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"ineligible", stats.Ineligible)
	return stats
}
