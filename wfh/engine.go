/*
engine.go - Request lifecycle engine

PURPOSE:
  Validates and executes every status transition of a WFH occurrence and
  orchestrates the surrounding work: directory lookups, capacity checks,
  store mutations, decision records, status-log appends.

STATE MACHINE (per occurrence):

      apply                    decision=Approved
  (none) ──▶ Pending ──────────────────────────▶ Approved
               │  │                                  │ staff withdraw
               │  │ decision=Rejected                ▼
               │  └────────────▶ Rejected      Pending_Withdraw
               │ staff cancel /                 │            │
               │ auto-reject sweep              │ Approved   │ Rejected
               ▼                                ▼            ▼
           Cancelled                        Withdrawn     Approved

  Terminal: Rejected, Cancelled, Withdrawn.

ATOMICITY:
  Each operation runs its guard checks, capacity checks, and writes inside
  one TxStore.WithTx call. A failure at any point leaves nothing mutated.
  For recurring approvals every occurrence/session pair is validated before
  the first write (two-phase), so a breach on the last date leaves the whole
  group untouched.

SEE ALSO:
  - capacity.go: The 50% rule invoked on approval paths
  - sweep.go: The scheduled stale-request sweep
*/
package wfh

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StaffCancelReason is recorded on staff-initiated cancellations.
const StaffCancelReason = "Staff initiated cancellation"

// CancelWindowDays bounds staff cancellation to +/-14 days around the
// occurrence's specific date.
const CancelWindowDays = 14

// Engine is the only mutator of occurrences. Store and Directory are
// injected; there is no ambient database handle.
type Engine struct {
	Store     TxStore
	Directory Directory

	// Now supplies "today" for window and staleness checks. Nil means the
	// wall clock; tests pin it.
	Now func() Date

	Log *logrus.Logger
}

func NewEngine(store TxStore, dir Directory, log *logrus.Logger) *Engine {
	return &Engine{Store: store, Directory: dir, Log: log}
}

func (e *Engine) today() Date {
	if e.Now != nil {
		return e.Now()
	}
	return Today()
}

func (e *Engine) log() *logrus.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logrus.StandardLogger()
}

func statusLog(occ *Occurrence) StatusLogEntry {
	return StatusLogEntry{
		LogTime:      time.Now().UTC(),
		RequestID:    occ.RequestID,
		SpecificDate: occ.SpecificDate,
		Status:       occ.Status,
		ApplyDate:    occ.ApplyDate,
		Reason:       occ.Reason,
	}
}

// =============================================================================
// APPLY - Ad-hoc
// =============================================================================

type AdhocInput struct {
	StaffID      StaffID
	SpecificDate Date
	IsAM         bool
	IsPM         bool
	ApplyDate    Date
	Reason       string
}

// ApplyAdhoc creates a single Pending occurrence for one date.
func (e *Engine) ApplyAdhoc(ctx context.Context, in AdhocInput) (*Occurrence, error) {
	staff, err := e.resolveStaff(ctx, in.StaffID)
	if err != nil {
		return nil, err
	}

	occ := Occurrence{
		RequestID:    RequestID(uuid.NewString()),
		SpecificDate: in.SpecificDate,
		StaffID:      staff.StaffID,
		ManagerID:    staff.ReportingManager,
		IsAM:         in.IsAM,
		IsPM:         in.IsPM,
		Status:       StatusPending,
		ApplyDate:    in.ApplyDate,
		Reason:       in.Reason,
	}

	err = e.Store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.FindByStaffAndDate(ctx, in.StaffID, in.SpecificDate)
		if err != nil {
			return err
		}
		if existing != nil {
			return &DuplicateRequestError{StaffID: in.StaffID, Date: in.SpecificDate}
		}

		if err := tx.CreateOccurrences(ctx, []Occurrence{occ}); err != nil {
			return err
		}
		return tx.AppendStatusLog(ctx, statusLog(&occ))
	})
	if err != nil {
		return nil, err
	}

	e.log().WithFields(logrus.Fields{
		"request_id": occ.RequestID,
		"staff_id":   occ.StaffID,
		"date":       occ.SpecificDate.String(),
	}).Info("ad-hoc WFH request created")

	return &occ, nil
}

// =============================================================================
// APPLY - Recurring
// =============================================================================

type RecurringInput struct {
	StaffID        StaffID
	StartDate      Date
	EndDate        Date
	RecurrenceDays string
	IsAM           bool
	IsPM           bool
	ApplyDate      Date
	Reason         string
}

// ApplyRecurring creates one Pending occurrence per matching weekday in
// [StartDate, EndDate], all sharing a fresh request id. One status-log entry
// is written per created occurrence.
func (e *Engine) ApplyRecurring(ctx context.Context, in RecurringInput) ([]Occurrence, error) {
	staff, err := e.resolveStaff(ctx, in.StaffID)
	if err != nil {
		return nil, err
	}

	if in.RecurrenceDays == "" {
		return nil, ErrMissingRecurrenceDays
	}
	weekdays, err := ParseRecurrenceDays(in.RecurrenceDays)
	if err != nil {
		return nil, err
	}

	dates := EnumerateWeekdays(in.StartDate, in.EndDate, weekdays)
	if len(dates) == 0 {
		return nil, ErrNoMatchingDates
	}

	requestID := RequestID(uuid.NewString())
	occs := make([]Occurrence, len(dates))
	for i, d := range dates {
		occs[i] = Occurrence{
			RequestID:    requestID,
			SpecificDate: d,
			StaffID:      staff.StaffID,
			ManagerID:    staff.ReportingManager,
			IsAM:         in.IsAM,
			IsPM:         in.IsPM,
			Status:       StatusPending,
			ApplyDate:    in.ApplyDate,
			Reason:       in.Reason,
		}
	}

	err = e.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateOccurrences(ctx, occs); err != nil {
			return err
		}
		for i := range occs {
			if err := tx.AppendStatusLog(ctx, statusLog(&occs[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log().WithFields(logrus.Fields{
		"request_id":  requestID,
		"staff_id":    staff.StaffID,
		"occurrences": len(occs),
	}).Info("recurring WFH request created")

	return occs, nil
}

// resolveStaff looks the requester up in the directory and verifies their
// reporting manager exists. Both are required before any apply or decision.
func (e *Engine) resolveStaff(ctx context.Context, id StaffID) (*Employee, error) {
	staff, err := e.Directory.EmployeeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, &StaffNotFoundError{StaffID: id}
	}

	manager, err := e.Directory.EmployeeByID(ctx, staff.ReportingManager)
	if err != nil {
		return nil, err
	}
	if manager == nil {
		return nil, &ManagerNotFoundError{StaffID: id}
	}
	return staff, nil
}

// =============================================================================
// DECIDE - Manager approve/reject of a pending occurrence
// =============================================================================

type DecisionInput struct {
	RequestID RequestID
	// SpecificDate selects one occurrence of the request. Nil is allowed
	// when the request has exactly one occurrence (ad-hoc).
	SpecificDate *Date
	ManagerID    StaffID
	Status       DecisionStatus
	Notes        string
}

// DecideRequest applies a manager's approve/reject decision to one pending
// occurrence. Approval runs the capacity check per requested session; either
// breach aborts with nothing written.
func (e *Engine) DecideRequest(ctx context.Context, in DecisionInput) (*Occurrence, error) {
	if !in.Status.Valid() {
		return nil, ErrInvalidDecisionStatus
	}

	var updated *Occurrence
	err := e.Store.WithTx(ctx, func(tx Store) error {
		occ, err := e.resolveTarget(ctx, tx, in.RequestID, in.SpecificDate)
		if err != nil {
			return err
		}
		if err := e.guardDecision(ctx, occ, in.ManagerID, "approve or reject", StatusPending); err != nil {
			return err
		}

		newStatus := StatusRejected
		if in.Status == DecisionApproved {
			newStatus = StatusApproved
			checker := &CapacityChecker{Store: tx, Directory: e.Directory}
			if err := checker.CheckSessions(ctx, occ); err != nil {
				return err
			}
		}

		updated, err = e.commitDecision(ctx, tx, occ, in, newStatus)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log().WithFields(logrus.Fields{
		"request_id": in.RequestID,
		"manager_id": in.ManagerID,
		"decision":   in.Status,
	}).Info("request decided")

	return updated, nil
}

// DecideRecurring applies one decision to every occurrence sharing a request
// id. All guards and capacity checks run before the first write; a breach
// aborts the whole group with the failing date in the error.
func (e *Engine) DecideRecurring(ctx context.Context, in DecisionInput) ([]Occurrence, error) {
	if !in.Status.Valid() {
		return nil, ErrInvalidDecisionStatus
	}

	var updated []Occurrence
	err := e.Store.WithTx(ctx, func(tx Store) error {
		occs, err := tx.ListByRequest(ctx, in.RequestID)
		if err != nil {
			return err
		}
		if len(occs) == 0 {
			return ErrNotFound
		}

		// Phase 1: validate everything.
		checker := &CapacityChecker{Store: tx, Directory: e.Directory}
		for i := range occs {
			occ := &occs[i]
			if err := e.guardDecision(ctx, occ, in.ManagerID, "approve or reject", StatusPending); err != nil {
				return err
			}
			if in.Status == DecisionApproved {
				if err := checker.CheckSessions(ctx, occ); err != nil {
					return fmt.Errorf("%s: %w", occ.SpecificDate, err)
				}
			}
		}

		// Phase 2: commit.
		newStatus := StatusRejected
		if in.Status == DecisionApproved {
			newStatus = StatusApproved
		}
		updated = make([]Occurrence, 0, len(occs))
		for i := range occs {
			occ, err := e.commitDecision(ctx, tx, &occs[i], in, newStatus)
			if err != nil {
				return err
			}
			updated = append(updated, *occ)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log().WithFields(logrus.Fields{
		"request_id":  in.RequestID,
		"manager_id":  in.ManagerID,
		"decision":    in.Status,
		"occurrences": len(updated),
	}).Info("recurring request decided")

	return updated, nil
}

// resolveTarget finds the occurrence a decision addresses. Without a date
// the request must be single-occurrence.
func (e *Engine) resolveTarget(ctx context.Context, tx Store, id RequestID, date *Date) (*Occurrence, error) {
	if date != nil {
		occ, err := tx.GetOccurrence(ctx, id, *date)
		if err != nil {
			return nil, err
		}
		if occ == nil {
			return nil, ErrNotFound
		}
		return occ, nil
	}

	occs, err := tx.ListByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	switch len(occs) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &occs[0], nil
	default:
		return nil, fmt.Errorf("request %s spans %d dates, specific date required", id, len(occs))
	}
}

// guardDecision runs the shared decision guards: requester and manager exist
// in the directory, the acting manager matches the snapshot, and the
// occurrence is in the state the action needs.
func (e *Engine) guardDecision(ctx context.Context, occ *Occurrence, managerID StaffID, action string, want Status) error {
	if _, err := e.resolveStaff(ctx, occ.StaffID); err != nil {
		return err
	}
	if occ.ManagerID != managerID {
		return &WrongManagerError{StaffID: occ.StaffID, Expected: occ.ManagerID, Submitted: managerID}
	}
	if occ.Status != want {
		return &InvalidStateError{Action: action, Status: occ.Status}
	}
	return nil
}

// commitDecision writes the status change, the decision record, and the
// status-log entry for one occurrence.
func (e *Engine) commitDecision(ctx context.Context, tx Store, occ *Occurrence, in DecisionInput, newStatus Status) (*Occurrence, error) {
	updated, err := tx.UpdateStatus(ctx, occ.RequestID, occ.SpecificDate, StatusUpdate{Status: newStatus})
	if err != nil {
		return nil, err
	}

	if err := tx.AppendDecision(ctx, Decision{
		RequestID:    occ.RequestID,
		SpecificDate: occ.SpecificDate,
		ManagerID:    in.ManagerID,
		Status:       in.Status,
		DecisionDate: e.today(),
		Notes:        in.Notes,
	}); err != nil {
		return nil, err
	}

	entry := statusLog(updated)
	entry.Reason = in.Notes
	if err := tx.AppendStatusLog(ctx, entry); err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// WITHDRAW - Staff-requested, manager-decided
// =============================================================================

// RequestWithdrawal moves an Approved occurrence to Pending_Withdraw. The
// apply date resets to today so a forgotten withdrawal eventually goes
// stale, and the reason records the staff's motivation.
func (e *Engine) RequestWithdrawal(ctx context.Context, id RequestID, date Date, reason string) (*Occurrence, error) {
	var updated *Occurrence
	err := e.Store.WithTx(ctx, func(tx Store) error {
		occ, err := tx.GetOccurrence(ctx, id, date)
		if err != nil {
			return err
		}
		if occ == nil {
			return ErrNotFound
		}
		if occ.Status != StatusApproved {
			return ErrNotApproved
		}

		today := e.today()
		updated, err = tx.UpdateStatus(ctx, id, date, StatusUpdate{
			Status:    StatusPendingWithdraw,
			Reason:    &reason,
			ApplyDate: &today,
		})
		if err != nil {
			return err
		}
		return tx.AppendStatusLog(ctx, statusLog(updated))
	})
	if err != nil {
		return nil, err
	}

	e.log().WithFields(logrus.Fields{
		"request_id": id,
		"date":       date.String(),
	}).Info("withdrawal requested")

	return updated, nil
}

type WithdrawalDecisionInput struct {
	RequestID    RequestID
	SpecificDate Date
	ManagerID    StaffID
	Status       DecisionStatus
	Notes        string
}

// DecideWithdrawal settles a Pending_Withdraw occurrence: Approved grants
// the withdrawal (Withdrawn), Rejected reverts the occurrence to Approved.
func (e *Engine) DecideWithdrawal(ctx context.Context, in WithdrawalDecisionInput) (*Occurrence, error) {
	if !in.Status.Valid() {
		return nil, ErrInvalidDecisionStatus
	}

	var updated *Occurrence
	err := e.Store.WithTx(ctx, func(tx Store) error {
		occ, err := tx.GetOccurrence(ctx, in.RequestID, in.SpecificDate)
		if err != nil {
			return err
		}
		if occ == nil {
			return ErrNotFound
		}
		if occ.ManagerID != in.ManagerID {
			return &WrongManagerError{StaffID: occ.StaffID, Expected: occ.ManagerID, Submitted: in.ManagerID}
		}
		if occ.Status != StatusPendingWithdraw {
			return &InvalidStateError{Action: "decide withdrawal for", Status: occ.Status}
		}

		newStatus := StatusApproved // withdrawal rejected: slot stands
		if in.Status == DecisionApproved {
			newStatus = StatusWithdrawn
		}

		updated, err = tx.UpdateStatus(ctx, in.RequestID, in.SpecificDate, StatusUpdate{Status: newStatus})
		if err != nil {
			return err
		}

		if err := tx.AppendWithdrawDecision(ctx, WithdrawDecision{
			RequestID:    in.RequestID,
			SpecificDate: in.SpecificDate,
			ManagerID:    in.ManagerID,
			Status:       in.Status,
			DecisionDate: e.today(),
			Notes:        in.Notes,
		}); err != nil {
			return err
		}

		entry := statusLog(updated)
		entry.Reason = in.Notes
		return tx.AppendStatusLog(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	e.log().WithFields(logrus.Fields{
		"request_id": in.RequestID,
		"date":       in.SpecificDate.String(),
		"decision":   in.Status,
	}).Info("withdrawal decided")

	return updated, nil
}

// =============================================================================
// CANCEL - Staff-initiated cancellation of a pending occurrence
// =============================================================================

// CancelPending cancels a staff member's own Pending occurrence. Only
// allowed while today is within 14 days of the occurrence's date, in either
// direction.
func (e *Engine) CancelPending(ctx context.Context, staffID StaffID, id RequestID, date Date) error {
	err := e.Store.WithTx(ctx, func(tx Store) error {
		occ, err := tx.GetOccurrence(ctx, id, date)
		if err != nil {
			return err
		}
		if occ == nil || occ.StaffID != staffID {
			return ErrNotFound
		}
		if occ.Status != StatusPending {
			return ErrNotPending
		}
		if !e.today().WithinDays(date, CancelWindowDays) {
			return &OutsideCancelWindowError{SpecificDate: date}
		}

		reason := StaffCancelReason
		updated, err := tx.UpdateStatus(ctx, id, date, StatusUpdate{
			Status: StatusCancelled,
			Reason: &reason,
		})
		if err != nil {
			return err
		}
		return tx.AppendStatusLog(ctx, statusLog(updated))
	})
	if err != nil {
		return err
	}

	e.log().WithFields(logrus.Fields{
		"request_id": id,
		"staff_id":   staffID,
		"date":       date.String(),
	}).Info("pending request cancelled by staff")

	return nil
}
