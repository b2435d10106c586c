package wfh

import (
	"context"
)

// =============================================================================
// TEAM TRAVERSAL
// =============================================================================

// FullTeam returns the transitive team under a manager: direct reports, plus
// the reports of any direct report who can themselves manage, and so on.
// Role-2 staff are leaves and are never expanded.
func FullTeam(ctx context.Context, dir Directory, managerID StaffID) ([]Employee, error) {
	team, err := dir.DirectReports(ctx, managerID)
	if err != nil {
		return nil, err
	}

	full := append([]Employee(nil), team...)

	var frontier []StaffID
	for _, e := range team {
		if e.CanManage() {
			frontier = append(frontier, e.StaffID)
		}
	}

	seen := map[StaffID]bool{managerID: true}
	for len(frontier) > 0 {
		id := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if seen[id] {
			continue
		}
		seen[id] = true

		sub, err := dir.DirectReports(ctx, id)
		if err != nil {
			return nil, err
		}
		full = append(full, sub...)
		for _, e := range sub {
			if e.CanManage() {
				frontier = append(frontier, e.StaffID)
			}
		}
	}

	return full, nil
}

// TeamOf resolves the team an employee is counted against: their own direct
// peers (everyone sharing their reporting manager) for staff, or their
// direct reports when the employee manages people and reports to no one.
func TeamOf(ctx context.Context, dir Directory, id StaffID) ([]Employee, error) {
	emp, err := dir.EmployeeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &StaffNotFoundError{StaffID: id}
	}

	if emp.ReportingManager != 0 {
		return dir.DirectReports(ctx, emp.ReportingManager)
	}
	return dir.DirectReports(ctx, emp.StaffID)
}
