package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wfh-engine/store/sqlite"
	"github.com/warp/wfh-engine/wfh"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func occ(id string, staffID wfh.StaffID, date wfh.Date) wfh.Occurrence {
	return wfh.Occurrence{
		RequestID:    wfh.RequestID(id),
		SpecificDate: date,
		StaffID:      staffID,
		ManagerID:    140009,
		IsAM:         true,
		IsPM:         false,
		Status:       wfh.StatusPending,
		ApplyDate:    wfh.NewDate(2024, time.September, 10),
		Reason:       "focus work",
	}
}

// =============================================================================
// OCCURRENCES
// =============================================================================

func TestStore_CreateAndGetOccurrence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)

	want := occ("r1", 140010, date)
	require.NoError(t, store.CreateOccurrences(ctx, []wfh.Occurrence{want}))

	got, err := store.GetOccurrence(ctx, "r1", date)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	missing, err := store.GetOccurrence(ctx, "r1", date.AddDays(1))
	require.NoError(t, err)
	assert.Nil(t, missing, "absent occurrence is nil, nil")
}

func TestStore_DuplicateKeyRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)

	require.NoError(t, store.CreateOccurrences(ctx, []wfh.Occurrence{occ("r1", 140010, date)}))

	err := store.CreateOccurrences(ctx, []wfh.Occurrence{occ("r1", 140010, date)})
	assert.ErrorIs(t, err, wfh.ErrDuplicateRequest)
}

func TestStore_UpdateStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)
	require.NoError(t, store.CreateOccurrences(ctx, []wfh.Occurrence{occ("r1", 140010, date)}))

	reason := "Auto-rejected by system"
	newApply := wfh.NewDate(2024, time.September, 15)
	updated, err := store.UpdateStatus(ctx, "r1", date, wfh.StatusUpdate{
		Status:    wfh.StatusCancelled,
		Reason:    &reason,
		ApplyDate: &newApply,
	})

	require.NoError(t, err)
	assert.Equal(t, wfh.StatusCancelled, updated.Status)
	assert.Equal(t, reason, updated.Reason)
	assert.Equal(t, newApply, updated.ApplyDate)

	// Partial update leaves reason and apply date alone.
	updated, err = store.UpdateStatus(ctx, "r1", date, wfh.StatusUpdate{Status: wfh.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, reason, updated.Reason)
	assert.Equal(t, newApply, updated.ApplyDate)

	_, err = store.UpdateStatus(ctx, "r-missing", date, wfh.StatusUpdate{Status: wfh.StatusCancelled})
	assert.ErrorIs(t, err, wfh.ErrNotFound)
}

func TestStore_FindByStaffAndDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)
	require.NoError(t, store.CreateOccurrences(ctx, []wfh.Occurrence{occ("r1", 140010, date)}))

	got, err := store.FindByStaffAndDate(ctx, 140010, date)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, wfh.RequestID("r1"), got.RequestID)

	none, err := store.FindByStaffAndDate(ctx, 140011, date)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStore_ListByStaffRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateOccurrences(ctx, []wfh.Occurrence{
		occ("r1", 140010, wfh.NewDate(2024, time.September, 16)),
		occ("r2", 140010, wfh.NewDate(2024, time.September, 23)),
		occ("r3", 140010, wfh.NewDate(2024, time.October, 7)),
		occ("r4", 140011, wfh.NewDate(2024, time.September, 16)),
	}))

	occs, err := store.ListByStaff(ctx, 140010,
		wfh.NewDate(2024, time.September, 1), wfh.NewDate(2024, time.September, 30))
	require.NoError(t, err)
	require.Len(t, occs, 2)
	assert.Equal(t, "2024-09-16", occs[0].SpecificDate.String())
	assert.Equal(t, "2024-09-23", occs[1].SpecificDate.String())
}

// =============================================================================
// CAPACITY COUNTING
// =============================================================================

func TestStore_CountSessionOccupants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)
	team := []wfh.StaffID{140010, 140011, 140012, 140013}

	approved := occ("r1", 140010, date)
	approved.Status = wfh.StatusApproved

	withdrawing := occ("r2", 140011, date)
	withdrawing.Status = wfh.StatusPendingWithdraw

	pending := occ("r3", 140012, date)

	pmOnly := occ("r4", 140013, date)
	pmOnly.Status = wfh.StatusApproved
	pmOnly.IsAM = false
	pmOnly.IsPM = true

	outsider := occ("r5", 150000, date)
	outsider.Status = wfh.StatusApproved

	require.NoError(t, store.CreateOccurrences(ctx, []wfh.Occurrence{approved, withdrawing, pending, pmOnly, outsider}))

	// AM: the approval and the pending withdrawal count; the pending row,
	// the PM-only row and the outsider do not.
	count, err := store.CountSessionOccupants(ctx, team, date, wfh.SessionAM, wfh.OccurrenceKey{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.CountSessionOccupants(ctx, team, date, wfh.SessionPM, wfh.OccurrenceKey{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Excluding a key drops that row from the count.
	count, err = store.CountSessionOccupants(ctx, team, date, wfh.SessionAM, approved.Key())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountSessionOccupants(ctx, nil, date, wfh.SessionAM, wfh.OccurrenceKey{})
	require.NoError(t, err)
	assert.Equal(t, 0, count, "empty team counts nothing")
}

// =============================================================================
// STALE PENDING
// =============================================================================

func TestStore_ListStalePending_StrictBoundary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cutoff := wfh.NewDate(2024, time.July, 20)

	stale := occ("r1", 140010, wfh.NewDate(2024, time.October, 1))
	stale.ApplyDate = wfh.NewDate(2024, time.July, 19)

	atCutoff := occ("r2", 140011, wfh.NewDate(2024, time.October, 1))
	atCutoff.ApplyDate = cutoff

	decided := occ("r3", 140012, wfh.NewDate(2024, time.October, 1))
	decided.ApplyDate = wfh.NewDate(2024, time.June, 1)
	decided.Status = wfh.StatusApproved

	require.NoError(t, store.CreateOccurrences(ctx, []wfh.Occurrence{stale, atCutoff, decided}))

	got, err := store.ListStalePending(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, wfh.RequestID("r1"), got[0].RequestID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)
	require.NoError(t, store.CreateOccurrences(ctx, []wfh.Occurrence{occ("r1", 140010, date)}))

	boom := errors.New("validation failed late")
	err := store.WithTx(ctx, func(tx wfh.Store) error {
		if _, err := tx.UpdateStatus(ctx, "r1", date, wfh.StatusUpdate{Status: wfh.StatusApproved}); err != nil {
			return err
		}
		if err := tx.CreateOccurrences(ctx, []wfh.Occurrence{occ("r2", 140011, date)}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetOccurrence(ctx, "r1", date)
	require.NoError(t, err)
	assert.Equal(t, wfh.StatusPending, got.Status, "update rolled back")

	gone, err := store.GetOccurrence(ctx, "r2", date)
	require.NoError(t, err)
	assert.Nil(t, gone, "insert rolled back")
}

func TestStore_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)

	err := store.WithTx(ctx, func(tx wfh.Store) error {
		if err := tx.CreateOccurrences(ctx, []wfh.Occurrence{occ("r1", 140010, date)}); err != nil {
			return err
		}
		if _, err := tx.UpdateStatus(ctx, "r1", date, wfh.StatusUpdate{Status: wfh.StatusApproved}); err != nil {
			return err
		}
		return tx.AppendDecision(ctx, wfh.Decision{
			RequestID:    "r1",
			SpecificDate: date,
			ManagerID:    140009,
			Status:       wfh.DecisionApproved,
			DecisionDate: wfh.NewDate(2024, time.September, 10),
		})
	})
	require.NoError(t, err)

	got, err := store.GetOccurrence(ctx, "r1", date)
	require.NoError(t, err)
	assert.Equal(t, wfh.StatusApproved, got.Status)
}

// =============================================================================
// STATUS LOG
// =============================================================================

func TestStore_StatusLogRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)
	applyDate := wfh.NewDate(2024, time.September, 10)

	first := wfh.StatusLogEntry{
		LogTime:      time.Date(2024, time.September, 10, 9, 0, 0, 0, time.UTC),
		RequestID:    "r1",
		SpecificDate: date,
		Status:       wfh.StatusPending,
		ApplyDate:    applyDate,
	}
	second := wfh.StatusLogEntry{
		LogTime:      time.Date(2024, time.September, 11, 9, 0, 0, 0, time.UTC),
		RequestID:    "r1",
		SpecificDate: date,
		Status:       wfh.StatusApproved,
		ApplyDate:    applyDate,
		Reason:       "ok for Friday",
	}
	require.NoError(t, store.AppendStatusLog(ctx, first))
	require.NoError(t, store.AppendStatusLog(ctx, second))

	entries, err := store.ListStatusLog(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, wfh.StatusPending, entries[0].Status)
	assert.Equal(t, wfh.StatusApproved, entries[1].Status)
	assert.Equal(t, "ok for Friday", entries[1].Reason)
}

// =============================================================================
// DIRECTORY
// =============================================================================

func TestStore_EmployeeDirectory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedEmployees(ctx, []wfh.Employee{
		{StaffID: 140001, FirstName: "Derek", LastName: "Tan", Dept: "Sales", Position: "Director", Country: "Singapore", Email: "derek.tan@example.com", ReportingManager: 140001, Role: wfh.RoleDirector},
		{StaffID: 140009, FirstName: "Mei", LastName: "Lin", Dept: "Sales", Position: "Manager", Country: "Singapore", Email: "mei.lin@example.com", ReportingManager: 140001, Role: wfh.RoleManager},
		{StaffID: 140010, FirstName: "Ravi", LastName: "Nair", Dept: "Sales", Position: "Account Manager", Country: "Singapore", Email: "ravi.nair@example.com", ReportingManager: 140009, Role: wfh.RoleStaff},
	}))

	e, err := store.EmployeeByID(ctx, 140010)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, wfh.StaffID(140009), e.ReportingManager)

	missing, err := store.EmployeeByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	reports, err := store.DirectReports(ctx, 140009)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, wfh.StaffID(140010), reports[0].StaffID)

	all, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Upsert replaces in place.
	require.NoError(t, store.SaveEmployee(ctx, wfh.Employee{
		StaffID: 140010, FirstName: "Ravi", LastName: "Nair", Dept: "Sales",
		Position: "Senior Account Manager", Country: "Singapore",
		Email: "ravi.nair@example.com", ReportingManager: 140009, Role: wfh.RoleStaff,
	}))
	e, err = store.EmployeeByID(ctx, 140010)
	require.NoError(t, err)
	assert.Equal(t, "Senior Account Manager", e.Position)
}

// =============================================================================
// END TO END THROUGH THE ENGINE
// =============================================================================

func TestStore_DrivesEngine(t *testing.T) {
	// The SQLite store backs the engine the same way the memory store does:
	// apply, approve, withdraw, decide withdrawal.

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SeedEmployees(ctx, []wfh.Employee{
		{StaffID: 140001, FirstName: "Derek", LastName: "Tan", Dept: "Sales", Position: "Director", Country: "Singapore", Email: "derek.tan@example.com", ReportingManager: 140001, Role: wfh.RoleDirector},
		{StaffID: 140009, FirstName: "Mei", LastName: "Lin", Dept: "Sales", Position: "Manager", Country: "Singapore", Email: "mei.lin@example.com", ReportingManager: 140001, Role: wfh.RoleManager},
		{StaffID: 140010, FirstName: "Ravi", LastName: "Nair", Dept: "Sales", Position: "Account Manager", Country: "Singapore", Email: "ravi.nair@example.com", ReportingManager: 140009, Role: wfh.RoleStaff},
	}))

	engine := wfh.NewEngine(store, store, nil)
	today := wfh.NewDate(2024, time.September, 10)
	engine.Now = func() wfh.Date { return today }

	date := wfh.NewDate(2024, time.September, 20)
	occ, err := engine.ApplyAdhoc(ctx, wfh.AdhocInput{
		StaffID:      140010,
		SpecificDate: date,
		IsAM:         true,
		ApplyDate:    today,
	})
	require.NoError(t, err)

	approved, err := engine.DecideRequest(ctx, wfh.DecisionInput{
		RequestID: occ.RequestID,
		ManagerID: 140009,
		Status:    wfh.DecisionApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, wfh.StatusApproved, approved.Status)

	_, err = engine.RequestWithdrawal(ctx, occ.RequestID, date, "plans changed")
	require.NoError(t, err)

	final, err := engine.DecideWithdrawal(ctx, wfh.WithdrawalDecisionInput{
		RequestID:    occ.RequestID,
		SpecificDate: date,
		ManagerID:    140009,
		Status:       wfh.DecisionApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, wfh.StatusWithdrawn, final.Status)

	logEntries, err := store.ListStatusLog(ctx, occ.RequestID)
	require.NoError(t, err)
	assert.Len(t, logEntries, 4, "pending, approved, pending_withdraw, withdrawn")
}
