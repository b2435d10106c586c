/*
sweep.go - Scheduled auto-reject of stale pending requests

PURPOSE:
  Cancels Pending occurrences whose apply date is strictly older than two
  calendar months before today. Runs on a fixed daily schedule (the trigger
  lives in api/scheduler.go); the sweep itself takes "today" as input so it
  is deterministic and testable.

FAILURE POLICY:
  Row-level tolerance: each stale occurrence is cancelled in its own
  transaction; a failing row is logged and skipped, the sweep continues.
  Re-running after a partial failure only touches the rows still Pending
  and stale, which also makes the sweep idempotent.

SEE ALSO:
  - engine.go: The interactive transitions
  - api/scheduler.go: Cron trigger
*/
package wfh

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AutoRejectReason is recorded on system-cancelled occurrences.
const AutoRejectReason = "Auto-rejected by system"

// StaleMonths is the staleness window in calendar months.
const StaleMonths = 2

// AutoRejectSweep cancels stale pending occurrences.
type AutoRejectSweep struct {
	Store TxStore
	Log   *logrus.Logger
}

func (s *AutoRejectSweep) log() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

// Run cancels every Pending occurrence with apply_date strictly before
// today minus two months and returns how many were cancelled. The boundary
// is exclusive: an occurrence applied exactly two months ago stays Pending.
func (s *AutoRejectSweep) Run(ctx context.Context, today Date) (int, error) {
	cutoff := today.AddMonths(-StaleMonths)

	stale, err := s.Store.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.log().WithFields(logrus.Fields{
		"today":  today.String(),
		"cutoff": cutoff.String(),
		"stale":  len(stale),
	}).Info("auto-reject sweep started")

	cancelled := 0
	for _, occ := range stale {
		occ := occ
		err := s.Store.WithTx(ctx, func(tx Store) error {
			reason := AutoRejectReason
			updated, err := tx.UpdateStatus(ctx, occ.RequestID, occ.SpecificDate, StatusUpdate{
				Status: StatusCancelled,
				Reason: &reason,
			})
			if err != nil {
				return err
			}
			return tx.AppendStatusLog(ctx, statusLog(updated))
		})
		if err != nil {
			s.log().WithFields(logrus.Fields{
				"request_id": occ.RequestID,
				"date":       occ.SpecificDate.String(),
			}).WithError(err).Warn("auto-reject failed for occurrence, continuing")
			continue
		}
		cancelled++
	}

	s.log().WithField("cancelled", cancelled).Info("auto-reject sweep finished")
	return cancelled, nil
}
