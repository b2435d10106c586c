/*
scheduler.go - Daily auto-reject sweep trigger

PURPOSE:
  Runs the stale-request sweep on a cron schedule. The sweep itself lives in
  wfh/sweep.go and takes "today" as input; this file only owns the trigger.

CONFIGURATION:
  - Spec: standard 5-field cron expression, default "0 0 * * *" (midnight)
  - An invalid spec fails at construction, not at the first tick

USAGE:
  scheduler, err := NewSweepScheduler("0 0 * * *", sweep, log)
  if err != nil {
      log.Fatal(err)
  }
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - wfh/sweep.go: The sweep logic
  - handlers.go: AutoReject endpoint (manual trigger)
*/
package api

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/wfh-engine/wfh"
)

// SweepScheduler runs the auto-reject sweep on a cron schedule.
type SweepScheduler struct {
	Sweep *wfh.AutoRejectSweep
	Log   *logrus.Logger

	cron *cron.Cron
}

// NewSweepScheduler registers the sweep under the given cron spec. The spec
// is validated up front so a bad configuration fails at startup, not at the
// first tick.
func NewSweepScheduler(spec string, sweep *wfh.AutoRejectSweep, log *logrus.Logger) (*SweepScheduler, error) {
	s := &SweepScheduler{
		Sweep: sweep,
		Log:   log,
		cron:  cron.New(),
	}

	_, err := s.cron.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the scheduler.
func (s *SweepScheduler) Start() {
	s.cron.Start()
	s.log().Info("auto-reject scheduler started")
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *SweepScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log().Info("auto-reject scheduler stopped")
}

func (s *SweepScheduler) runOnce() {
	if _, err := s.Sweep.Run(context.Background(), wfh.Today()); err != nil {
		s.log().WithError(err).Error("scheduled auto-reject sweep failed")
	}
}

func (s *SweepScheduler) log() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}
