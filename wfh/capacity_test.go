package wfh_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wfh-engine/wfh"
	"github.com/warp/wfh-engine/wfh/store"
)

// =============================================================================
// THE PURE RULE
// =============================================================================

func TestWouldExceed(t *testing.T) {
	tests := []struct {
		name     string
		teamSize int
		current  int
		exceed   bool
	}{
		{"first of four", 4, 0, false},
		{"second of four is exactly half", 4, 1, false},
		{"third of four breaches", 4, 2, true},
		{"first of two is exactly half", 2, 0, false},
		{"second of two breaches", 2, 1, true},
		{"first of one breaches", 1, 0, true},
		{"empty team never blocks", 0, 0, false},
		{"empty team with stale occupants", 0, 3, false},
		{"second of five", 5, 1, false},
		{"third of five breaches", 5, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.exceed, wfh.WouldExceed(tt.teamSize, tt.current))
		})
	}
}

// =============================================================================
// THE CHECKER AGAINST A STORE
// =============================================================================

func seedTeamOfFour(mem *store.Memory) {
	mem.AddEmployee(wfh.Employee{StaffID: 140009, FirstName: "Mei", LastName: "Lin", Role: wfh.RoleManager, ReportingManager: 140001})
	for _, id := range []wfh.StaffID{140010, 140011, 140012, 140013} {
		mem.AddEmployee(wfh.Employee{StaffID: id, Role: wfh.RoleStaff, ReportingManager: 140009})
	}
}

func approvedOcc(id string, staffID wfh.StaffID, date wfh.Date, am, pm bool) wfh.Occurrence {
	return wfh.Occurrence{
		RequestID:    wfh.RequestID(id),
		SpecificDate: date,
		StaffID:      staffID,
		ManagerID:    140009,
		IsAM:         am,
		IsPM:         pm,
		Status:       wfh.StatusApproved,
		ApplyDate:    date.AddDays(-7),
	}
}

func TestCapacityChecker_SessionsAreIndependent(t *testing.T) {
	// GIVEN: Two of four teammates approved for the AM session on a date
	// WHEN: Checking a PM-only occurrence for the same date
	// THEN: No breach; AM occupancy does not count against PM

	mem := store.NewMemory()
	seedTeamOfFour(mem)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)

	require.NoError(t, mem.CreateOccurrences(ctx, []wfh.Occurrence{
		approvedOcc("r1", 140010, date, true, false),
		approvedOcc("r2", 140011, date, true, false),
	}))

	checker := &wfh.CapacityChecker{Store: mem, Directory: mem}

	pmOcc := approvedOcc("r3", 140012, date, false, true)
	pmOcc.Status = wfh.StatusPending
	assert.NoError(t, checker.CheckSessions(ctx, &pmOcc))

	amOcc := approvedOcc("r4", 140013, date, true, false)
	amOcc.Status = wfh.StatusPending
	err := checker.CheckSessions(ctx, &amOcc)
	require.Error(t, err)

	var capErr *wfh.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, wfh.SessionAM, capErr.Session)
	assert.Equal(t, "Exceed 0.5 rule limit for AM session", err.Error())
}

func TestCapacityChecker_PendingWithdrawHoldsSlot(t *testing.T) {
	// GIVEN: One approval and one pending withdrawal for AM on a date
	// WHEN: Checking a third AM occurrence
	// THEN: Breach; the pending withdrawal still occupies its slot

	mem := store.NewMemory()
	seedTeamOfFour(mem)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)

	withdrawing := approvedOcc("r2", 140011, date, true, false)
	withdrawing.Status = wfh.StatusPendingWithdraw

	require.NoError(t, mem.CreateOccurrences(ctx, []wfh.Occurrence{
		approvedOcc("r1", 140010, date, true, false),
		withdrawing,
	}))

	checker := &wfh.CapacityChecker{Store: mem, Directory: mem}
	candidate := approvedOcc("r3", 140012, date, true, false)
	candidate.Status = wfh.StatusPending

	assert.ErrorIs(t, checker.CheckSessions(ctx, &candidate), wfh.ErrCapacityExceeded)
}

func TestCapacityChecker_ExcludesSelf(t *testing.T) {
	// An occurrence being re-evaluated never counts itself, so an already
	// approved row passes its own check.

	mem := store.NewMemory()
	seedTeamOfFour(mem)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)

	self := approvedOcc("r1", 140010, date, true, true)
	other := approvedOcc("r2", 140011, date, true, true)
	require.NoError(t, mem.CreateOccurrences(ctx, []wfh.Occurrence{self, other}))

	checker := &wfh.CapacityChecker{Store: mem, Directory: mem}
	assert.NoError(t, checker.CheckSessions(ctx, &self))
}

func TestCapacityChecker_RejectedAndCancelledDoNotCount(t *testing.T) {
	mem := store.NewMemory()
	seedTeamOfFour(mem)
	ctx := context.Background()
	date := wfh.NewDate(2024, time.September, 20)

	rejected := approvedOcc("r1", 140010, date, true, false)
	rejected.Status = wfh.StatusRejected
	cancelled := approvedOcc("r2", 140011, date, true, false)
	cancelled.Status = wfh.StatusCancelled
	pending := approvedOcc("r3", 140012, date, true, false)
	pending.Status = wfh.StatusPending

	require.NoError(t, mem.CreateOccurrences(ctx, []wfh.Occurrence{rejected, cancelled, pending}))

	checker := &wfh.CapacityChecker{Store: mem, Directory: mem}
	candidate := approvedOcc("r4", 140013, date, true, false)
	candidate.Status = wfh.StatusPending

	assert.NoError(t, checker.CheckSessions(ctx, &candidate))
}

func TestCapacityChecker_ManagerWithoutTeamNeverBlocks(t *testing.T) {
	mem := store.NewMemory()
	mem.AddEmployee(wfh.Employee{StaffID: 140009, Role: wfh.RoleManager})
	ctx := context.Background()

	checker := &wfh.CapacityChecker{Store: mem, Directory: mem}
	occ := approvedOcc("r1", 140010, wfh.NewDate(2024, time.September, 20), true, true)
	occ.Status = wfh.StatusPending

	assert.NoError(t, checker.CheckSessions(ctx, &occ))
}
