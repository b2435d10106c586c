/*
capacity.go - The 50% rule

PURPOSE:
  Decides whether admitting one more approval would put more than half of a
  manager's direct team on WFH for a half-day session on a date.

THE RULE:
  (current occupants + 1) / team size > 0.5  =>  breach

  - Evaluated independently per session the occurrence requests (AM, PM).
  - Exactly 50% is allowed: the comparison is strict.
  - Occupants are occurrences with status Approved or Pending_Withdraw
    (a pending withdrawal holds its slot until decided), excluding the
    occurrence being evaluated itself.
  - A team of size zero never blocks.

PRECISION:
  Ratios use decimal arithmetic so the 0.5 boundary is exact. 2/4 must
  compare equal to 0.5, never 0.5000...1.

CONCURRENCY:
  The checker itself holds no state; callers must run it against the same
  transactional store view that will commit the approval, so the count it
  observed cannot change before the write lands.

SEE ALSO:
  - engine.go: Invokes the checker inside WithTx on every approval path
*/
package wfh

import (
	"context"

	"github.com/shopspring/decimal"
)

var capacityLimit = decimal.New(5, -1) // 0.5

// WouldExceed is the pure form of the rule: given a team of teamSize with
// current occupants for a session/date, would one more approval breach 50%?
func WouldExceed(teamSize, current int) bool {
	if teamSize == 0 {
		return false
	}
	ratio := decimal.NewFromInt(int64(current + 1)).
		Div(decimal.NewFromInt(int64(teamSize)))
	return ratio.GreaterThan(capacityLimit)
}

// CapacityChecker evaluates the rule against a store and directory.
type CapacityChecker struct {
	Store     Store
	Directory Directory
}

// Check evaluates one session of an occurrence. Returns *CapacityError on
// breach, nil otherwise.
func (c *CapacityChecker) Check(ctx context.Context, occ *Occurrence, session Session) error {
	team, err := c.Directory.DirectReports(ctx, occ.ManagerID)
	if err != nil {
		return err
	}
	if len(team) == 0 {
		return nil
	}

	staff := make([]StaffID, len(team))
	for i, e := range team {
		staff[i] = e.StaffID
	}

	current, err := c.Store.CountSessionOccupants(ctx, staff, occ.SpecificDate, session, occ.Key())
	if err != nil {
		return err
	}

	if WouldExceed(len(team), current) {
		return &CapacityError{Session: session, Date: occ.SpecificDate}
	}
	return nil
}

// CheckSessions evaluates every session the occurrence requests, AM first.
// Either breach fails the whole occurrence.
func (c *CapacityChecker) CheckSessions(ctx context.Context, occ *Occurrence) error {
	for _, session := range occ.Sessions() {
		if err := c.Check(ctx, occ, session); err != nil {
			return err
		}
	}
	return nil
}
