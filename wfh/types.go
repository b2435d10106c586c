/*
Package wfh implements the work-from-home request engine.

PURPOSE:
  This package contains the domain types and algorithms for managing WFH
  request occurrences: the status state machine, the half-day session
  capacity rule, and the stale-request sweep.

KEY CONCEPTS IN THIS FILE (types.go):
  - Occurrence: One WFH request for one calendar day (the atomic unit)
  - Status: Lifecycle state of an occurrence
  - Session: Half-day slot (AM or PM); an occurrence may cover either or both
  - Decision / WithdrawDecision: Append-only records of manager actions
  - StatusLogEntry: Append-only snapshot written on every status change
  - Employee: Directory record used for manager and team resolution

DESIGN PRINCIPLES:
  1. Occurrences are never deleted: history is preserved via status + logs
  2. One logical request may span many occurrences (recurring apply), all
     sharing a RequestID but with distinct SpecificDates
  3. Mutations go through explicit StatusUpdate structs, never open-ended
     field maps

SEE ALSO:
  - engine.go: State transitions and orchestration
  - capacity.go: The 50% rule
  - store.go: Persistence interfaces
*/
package wfh

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// RequestID groups the occurrences created by a single apply action.
// Ad-hoc applies yield one occurrence; recurring applies yield several
// sharing the same RequestID.
type RequestID string

// StaffID identifies an employee in the directory.
type StaffID int

// OccurrenceKey is the primary key of an occurrence.
type OccurrenceKey struct {
	RequestID    RequestID
	SpecificDate Date
}

// =============================================================================
// STATUS - Occurrence lifecycle state
// =============================================================================

type Status string

const (
	StatusPending         Status = "Pending"
	StatusApproved        Status = "Approved"
	StatusRejected        Status = "Rejected"
	StatusCancelled       Status = "Cancelled"
	StatusWithdrawn       Status = "Withdrawn"
	StatusPendingWithdraw Status = "Pending_Withdraw"
)

// Terminal reports whether no further transition is possible from s.
// Approved is NOT terminal: it can still move to Pending_Withdraw.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusWithdrawn:
		return true
	}
	return false
}

// =============================================================================
// SESSION - Half-day slot
// =============================================================================

type Session string

const (
	SessionAM Session = "AM"
	SessionPM Session = "PM"
)

// =============================================================================
// OCCURRENCE - One WFH request for one calendar day
// =============================================================================

type Occurrence struct {
	RequestID    RequestID
	SpecificDate Date

	StaffID StaffID
	// ManagerID is a snapshot of the requester's reporting manager at apply
	// time. Decisions are validated against this, not the live directory.
	ManagerID StaffID

	IsAM bool
	IsPM bool

	Status Status

	// ApplyDate is when the occurrence was applied or re-applied (a
	// withdrawal request resets it). Drives the auto-reject staleness check.
	ApplyDate Date

	Reason string
}

func (o Occurrence) Key() OccurrenceKey {
	return OccurrenceKey{RequestID: o.RequestID, SpecificDate: o.SpecificDate}
}

// Sessions returns the half-day slots this occurrence covers, AM first.
func (o Occurrence) Sessions() []Session {
	var sessions []Session
	if o.IsAM {
		sessions = append(sessions, SessionAM)
	}
	if o.IsPM {
		sessions = append(sessions, SessionPM)
	}
	return sessions
}

// OccupiesSlot reports whether the occurrence currently holds a WFH slot
// for capacity purposes. A pending withdrawal still occupies its slot
// until the manager decides it.
func (o Occurrence) OccupiesSlot() bool {
	return o.Status == StatusApproved || o.Status == StatusPendingWithdraw
}

// =============================================================================
// DECISIONS - Append-only manager action records
// =============================================================================

type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "Approved"
	DecisionRejected DecisionStatus = "Rejected"
)

func (d DecisionStatus) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Decision records a manager's approve/reject action on one occurrence.
type Decision struct {
	RequestID    RequestID
	SpecificDate Date
	ManagerID    StaffID
	Status       DecisionStatus
	DecisionDate Date
	Notes        string
}

// WithdrawDecision records a manager's action on a withdrawal request.
// Approved means the withdrawal is granted (occurrence becomes Withdrawn);
// Rejected reverts the occurrence to Approved.
type WithdrawDecision struct {
	RequestID    RequestID
	SpecificDate Date
	ManagerID    StaffID
	Status       DecisionStatus
	DecisionDate Date
	Notes        string
}

// =============================================================================
// STATUS LOG - Append-only status-change trail
// =============================================================================

// StatusLogEntry is written on every status change of an occurrence,
// including creation.
type StatusLogEntry struct {
	LogTime      time.Time
	RequestID    RequestID
	SpecificDate Date
	Status       Status
	ApplyDate    Date
	Reason       string
}

// =============================================================================
// EMPLOYEE - Directory record
// =============================================================================

// Employee roles. Role 2 employees never manage anyone; everyone else may
// appear as a reporting manager, which is what the team traversal follows.
const (
	RoleDirector = 1
	RoleStaff    = 2
	RoleManager  = 3
)

type Employee struct {
	StaffID          StaffID
	FirstName        string
	LastName         string
	Dept             string
	Position         string
	Country          string
	Email            string
	ReportingManager StaffID // zero when the employee reports to no one
	Role             int
}

// CanManage reports whether the employee may have direct reports.
func (e Employee) CanManage() bool {
	return e.Role != RoleStaff
}
