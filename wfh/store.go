/*
store.go - Persistence and directory interfaces

PURPOSE:
  Defines what the engine needs from its collaborators: the durable request
  store (with transactional execution), the append-only decision and status
  logs, and the read-only employee directory.

TRANSACTIONS:
  TxStore.WithTx runs a function against a transactional view of the store.
  Implementations must serialize WithTx calls against each other and against
  direct writes: the capacity check and the status commit of an approval run
  inside one WithTx, and no other approval may interleave between them.
  On error the transaction's writes are rolled back.

IMPLEMENTATIONS:
  store/sqlite: SQLite-backed, database transaction + store-wide mutex
  wfh/store:    in-memory, snapshot rollback (testing/dev)

SEE ALSO:
  - engine.go: The only mutator of occurrences
  - directory.go: Team traversal built on Directory
*/
package wfh

import (
	"context"
)

// =============================================================================
// STATUS UPDATE - The only mutable field set per transition
// =============================================================================

// StatusUpdate enumerates exactly what a transition may change. Nil pointer
// fields are left untouched.
type StatusUpdate struct {
	Status    Status
	Reason    *string
	ApplyDate *Date
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// Store is the durable table of WFH occurrences plus the append-only logs.
// Lookups return (nil, nil) when the record is absent.
type Store interface {
	// CreateOccurrences inserts new occurrences atomically. A primary-key
	// collision surfaces as ErrDuplicateRequest.
	CreateOccurrences(ctx context.Context, occs []Occurrence) error

	GetOccurrence(ctx context.Context, id RequestID, date Date) (*Occurrence, error)

	// ListByRequest returns all occurrences sharing a request id, ordered
	// by specific date.
	ListByRequest(ctx context.Context, id RequestID) ([]Occurrence, error)

	// FindByStaffAndDate returns the staff's occurrence on a date regardless
	// of which request it belongs to. Drives the duplicate-apply check.
	FindByStaffAndDate(ctx context.Context, staffID StaffID, date Date) (*Occurrence, error)

	// ListByStaff returns a staff member's occurrences in [from, to],
	// ordered by specific date.
	ListByStaff(ctx context.Context, staffID StaffID, from, to Date) ([]Occurrence, error)

	// ListByManager returns every occurrence snapshotted under a manager,
	// ordered by specific date. Backs the manager decision view.
	ListByManager(ctx context.Context, managerID StaffID) ([]Occurrence, error)

	// UpdateStatus applies a StatusUpdate to one occurrence and returns the
	// updated row. Missing occurrence surfaces as ErrNotFound.
	UpdateStatus(ctx context.Context, id RequestID, date Date, upd StatusUpdate) (*Occurrence, error)

	// CountSessionOccupants counts occurrences on date that belong to one of
	// the given staff, cover the session, and currently occupy a WFH slot
	// (Approved or Pending_Withdraw). The excluded key is the occurrence
	// under evaluation; it never counts toward its own check.
	CountSessionOccupants(ctx context.Context, staff []StaffID, date Date, session Session, exclude OccurrenceKey) (int, error)

	// ListStalePending returns Pending occurrences with apply_date strictly
	// before cutoff.
	ListStalePending(ctx context.Context, cutoff Date) ([]Occurrence, error)

	AppendDecision(ctx context.Context, d Decision) error
	AppendWithdrawDecision(ctx context.Context, d WithdrawDecision) error
	AppendStatusLog(ctx context.Context, e StatusLogEntry) error

	// ListStatusLog returns a request's log entries in log-time order.
	ListStatusLog(ctx context.Context, id RequestID) ([]StatusLogEntry, error)
}

// TxStore is a Store that can execute a function transactionally.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional store view. fn returning an
	// error rolls back every write fn made.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// DIRECTORY - Read-only employee lookups
// =============================================================================

type Directory interface {
	// EmployeeByID returns (nil, nil) when the employee does not exist.
	EmployeeByID(ctx context.Context, id StaffID) (*Employee, error)

	// DirectReports returns the employees whose reporting manager is id.
	// This is the team the capacity rule counts against.
	DirectReports(ctx context.Context, id StaffID) ([]Employee, error)
}
