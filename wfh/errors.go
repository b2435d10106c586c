/*
errors.go - Centralized error types for the WFH engine

PURPOSE:
  All business-rule failures in one place. Every error here is detected
  before any mutation and surfaced synchronously; none is retryable by the
  engine itself.

ERROR CATEGORIES:
  1. Lookup failures - missing occurrences, staff, managers
  2. Guard failures  - wrong manager, wrong state, window/duplicate checks
  3. Input failures  - malformed recurrence selectors, bad decision enums
  4. Capacity        - the 50% rule

USAGE:
  Callers match with errors.Is for the category and errors.As for details:

    var capErr *wfh.CapacityError
    if errors.As(err, &capErr) {
        // capErr.Session, capErr.Date
    }

SEE ALSO:
  - engine.go: Where these are raised
  - api/handlers.go: HTTP status mapping
*/
package wfh

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced occurrence does not exist.
	ErrNotFound = errors.New("request not found")

	// ErrStaffNotFound is returned when a directory lookup for the
	// requesting staff fails.
	ErrStaffNotFound = errors.New("staff not found")

	// ErrManagerNotFound is returned when the requester's reporting manager
	// is missing from the directory.
	ErrManagerNotFound = errors.New("reporting manager not found")

	// ErrWrongManager is returned when the acting manager does not match the
	// occurrence's recorded manager.
	ErrWrongManager = errors.New("wrong manager")

	// ErrInvalidState is returned when an occurrence is not in the state the
	// requested transition needs.
	ErrInvalidState = errors.New("invalid state for action")

	// ErrCapacityExceeded is returned when one more approval would put more
	// than half the team on WFH for a session.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrDuplicateRequest is returned when the staff already has an
	// occurrence for the target date.
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrNotPending is returned when cancelling anything but a Pending
	// occurrence.
	ErrNotPending = errors.New("only pending requests can be cancelled")

	// ErrNotApproved is returned when requesting withdrawal of anything but
	// an Approved occurrence.
	ErrNotApproved = errors.New("request has not been approved")

	// ErrOutsideCancelWindow is returned when the current date is more than
	// 14 days from the occurrence's specific date.
	ErrOutsideCancelWindow = errors.New("outside cancellation window")

	// ErrMissingRecurrenceDays is returned when a recurring apply carries no
	// recurrence selector.
	ErrMissingRecurrenceDays = errors.New("recurrence days not provided")

	// ErrInvalidRecurrenceFormat is returned when a recurrence selector
	// cannot be parsed.
	ErrInvalidRecurrenceFormat = errors.New("invalid recurrence days format")

	// ErrInvalidDecisionStatus is returned when a decision status is outside
	// {Approved, Rejected}.
	ErrInvalidDecisionStatus = errors.New("invalid decision status")

	// ErrNoMatchingDates is returned when a recurring apply's range contains
	// no date matching the selector.
	ErrNoMatchingDates = errors.New("no dates match the recurrence days in the requested range")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StaffNotFoundError names the missing staff member.
type StaffNotFoundError struct {
	StaffID StaffID
}

func (e *StaffNotFoundError) Error() string {
	return fmt.Sprintf("Employee with staff_id %d not found", e.StaffID)
}

func (e *StaffNotFoundError) Unwrap() error { return ErrStaffNotFound }

// ManagerNotFoundError names the employee whose reporting manager is missing.
type ManagerNotFoundError struct {
	StaffID StaffID
}

func (e *ManagerNotFoundError) Error() string {
	return fmt.Sprintf("Reporting manager for employee %d not found", e.StaffID)
}

func (e *ManagerNotFoundError) Unwrap() error { return ErrManagerNotFound }

// WrongManagerError states both the expected and the submitted manager.
type WrongManagerError struct {
	StaffID   StaffID
	Expected  StaffID
	Submitted StaffID
}

func (e *WrongManagerError) Error() string {
	return fmt.Sprintf("Employee %d reports under %d instead of %d",
		e.StaffID, e.Expected, e.Submitted)
}

func (e *WrongManagerError) Unwrap() error { return ErrWrongManager }

// InvalidStateError names the action and the occurrence's current status.
type InvalidStateError struct {
	Action string // e.g. "approve or reject"
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("Manager cannot %s request with %s status", e.Action, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// CapacityError identifies the session (and date) that breached the 50% rule.
type CapacityError struct {
	Session Session
	Date    Date
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Exceed 0.5 rule limit for %s session", e.Session)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// DuplicateRequestError names the date already covered by a request.
type DuplicateRequestError struct {
	StaffID StaffID
	Date    Date
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("Staff has an existing request for %s", e.Date)
}

func (e *DuplicateRequestError) Unwrap() error { return ErrDuplicateRequest }

// OutsideCancelWindowError names the occurrence date the window is anchored on.
type OutsideCancelWindowError struct {
	SpecificDate Date
}

func (e *OutsideCancelWindowError) Error() string {
	return fmt.Sprintf("Cancellation allowed only for requests within 2 weeks from the specific date of %s",
		e.SpecificDate)
}

func (e *OutsideCancelWindowError) Unwrap() error { return ErrOutsideCancelWindow }

// RecurrenceFormatError names the selector token that failed to parse.
type RecurrenceFormatError struct {
	Token string
}

func (e *RecurrenceFormatError) Error() string {
	return fmt.Sprintf("invalid recurrence day %q: want a weekday name or 0 (Monday) through 6 (Sunday)", e.Token)
}

func (e *RecurrenceFormatError) Unwrap() error { return ErrInvalidRecurrenceFormat }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is a business-rule failure the
// caller caused, as opposed to a store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrWrongManager) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrDuplicateRequest) ||
		errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrNotApproved) ||
		errors.Is(err, ErrOutsideCancelWindow) ||
		errors.Is(err, ErrMissingRecurrenceDays) ||
		errors.Is(err, ErrInvalidRecurrenceFormat) ||
		errors.Is(err, ErrInvalidDecisionStatus) ||
		errors.Is(err, ErrNoMatchingDates)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStaffNotFound) ||
		errors.Is(err, ErrManagerNotFound)
}
