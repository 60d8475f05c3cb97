/*
scheduler.go - Cron-driven invariant audit

PURPOSE:
  Runs Engine.Audit on a cron schedule (nightly by default) and logs
  every finding. Operations keep the invariants by construction, so any
  finding here points at store corruption or out-of-band writes and
  deserves attention.

USAGE:
  sched, err := NewScheduler(eng, cfg.Audit.CronSchedule, log)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - engine/audit.go: The checks themselves
  - cmd/server/main.go: Wiring
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/warp/depot-engine/engine"
)

// Scheduler owns the background cron jobs of the server.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewScheduler wires the audit job onto the given cron spec
// (standard 5-field syntax, e.g. "0 3 * * *").
func NewScheduler(eng *engine.Engine, spec string, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		runAudit(ctx, eng, log)
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, log: log}, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func runAudit(ctx context.Context, eng *engine.Engine, log *zap.Logger) {
	findings, err := eng.Audit(ctx)
	if err != nil {
		log.Error("audit run failed", zap.Error(err))
		return
	}
	if len(findings) == 0 {
		log.Info("audit clean")
		return
	}
	for _, f := range findings {
		log.Warn("audit finding",
			zap.String("code", f.Code),
			zap.String("subject", f.Subject),
			zap.String("detail", f.Detail),
		)
	}
}
