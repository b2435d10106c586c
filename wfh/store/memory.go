// Package store provides in-memory implementations of the wfh persistence
// and directory interfaces, for tests and local development.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/wfh-engine/wfh"
)

// =============================================================================
// MEMORY STORE - TxStore + Directory in one
// =============================================================================

type occKey struct {
	RequestID wfh.RequestID
	Date      string
}

type Memory struct {
	mu sync.RWMutex

	occurrences map[occKey]wfh.Occurrence
	decisions   []wfh.Decision
	withdrawals []wfh.WithdrawDecision
	statusLog   []wfh.StatusLogEntry

	// The directory is guarded separately: engine code reads it while a
	// WithTx holds mu, and sync.RWMutex is not reentrant.
	dirMu     sync.RWMutex
	employees map[wfh.StaffID]wfh.Employee

	// FailUpdate, when set, makes the next UpdateStatus on the matching key
	// fail. Lets tests exercise rollback and sweep partial-failure paths.
	FailUpdate func(id wfh.RequestID, date wfh.Date) error
}

func NewMemory() *Memory {
	return &Memory{
		occurrences: make(map[occKey]wfh.Occurrence),
		employees:   make(map[wfh.StaffID]wfh.Employee),
	}
}

func keyOf(id wfh.RequestID, date wfh.Date) occKey {
	return occKey{RequestID: id, Date: date.String()}
}

// =============================================================================
// DIRECTORY
// =============================================================================

// AddEmployee seeds the directory.
func (m *Memory) AddEmployee(e wfh.Employee) {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()
	m.employees[e.StaffID] = e
}

func (m *Memory) EmployeeByID(_ context.Context, id wfh.StaffID) (*wfh.Employee, error) {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) DirectReports(_ context.Context, id wfh.StaffID) ([]wfh.Employee, error) {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()
	return m.directReportsLocked(id), nil
}

// ListEmployees returns the whole directory, ordered by staff id.
func (m *Memory) ListEmployees(_ context.Context) ([]wfh.Employee, error) {
	m.dirMu.RLock()
	defer m.dirMu.RUnlock()

	employees := make([]wfh.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		employees = append(employees, e)
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].StaffID < employees[j].StaffID })
	return employees, nil
}

func (m *Memory) directReportsLocked(id wfh.StaffID) []wfh.Employee {
	var team []wfh.Employee
	for _, e := range m.employees {
		if e.ReportingManager == id {
			team = append(team, e)
		}
	}
	sort.Slice(team, func(i, j int) bool { return team[i].StaffID < team[j].StaffID })
	return team
}

// =============================================================================
// STORE (public methods lock; *Locked forms back the tx view)
// =============================================================================

func (m *Memory) CreateOccurrences(_ context.Context, occs []wfh.Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(occs)
}

func (m *Memory) createLocked(occs []wfh.Occurrence) error {
	for _, occ := range occs {
		if _, exists := m.occurrences[keyOf(occ.RequestID, occ.SpecificDate)]; exists {
			return fmt.Errorf("occurrence %s/%s: %w", occ.RequestID, occ.SpecificDate, wfh.ErrDuplicateRequest)
		}
	}
	for _, occ := range occs {
		m.occurrences[keyOf(occ.RequestID, occ.SpecificDate)] = occ
	}
	return nil
}

func (m *Memory) GetOccurrence(_ context.Context, id wfh.RequestID, date wfh.Date) (*wfh.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id, date), nil
}

func (m *Memory) getLocked(id wfh.RequestID, date wfh.Date) *wfh.Occurrence {
	occ, ok := m.occurrences[keyOf(id, date)]
	if !ok {
		return nil
	}
	return &occ
}

func (m *Memory) ListByRequest(_ context.Context, id wfh.RequestID) ([]wfh.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listByRequestLocked(id), nil
}

func (m *Memory) listByRequestLocked(id wfh.RequestID) []wfh.Occurrence {
	var occs []wfh.Occurrence
	for _, occ := range m.occurrences {
		if occ.RequestID == id {
			occs = append(occs, occ)
		}
	}
	sortByDate(occs)
	return occs
}

func (m *Memory) FindByStaffAndDate(_ context.Context, staffID wfh.StaffID, date wfh.Date) (*wfh.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findByStaffAndDateLocked(staffID, date), nil
}

func (m *Memory) findByStaffAndDateLocked(staffID wfh.StaffID, date wfh.Date) *wfh.Occurrence {
	for _, occ := range m.occurrences {
		if occ.StaffID == staffID && occ.SpecificDate.Equal(date) {
			occ := occ
			return &occ
		}
	}
	return nil
}

func (m *Memory) ListByStaff(_ context.Context, staffID wfh.StaffID, from, to wfh.Date) ([]wfh.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var occs []wfh.Occurrence
	for _, occ := range m.occurrences {
		if occ.StaffID != staffID {
			continue
		}
		if occ.SpecificDate.Before(from) || occ.SpecificDate.After(to) {
			continue
		}
		occs = append(occs, occ)
	}
	sortByDate(occs)
	return occs, nil
}

func (m *Memory) ListByManager(_ context.Context, managerID wfh.StaffID) ([]wfh.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var occs []wfh.Occurrence
	for _, occ := range m.occurrences {
		if occ.ManagerID == managerID {
			occs = append(occs, occ)
		}
	}
	sortByDate(occs)
	return occs, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id wfh.RequestID, date wfh.Date, upd wfh.StatusUpdate) (*wfh.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(id, date, upd)
}

func (m *Memory) updateLocked(id wfh.RequestID, date wfh.Date, upd wfh.StatusUpdate) (*wfh.Occurrence, error) {
	if m.FailUpdate != nil {
		if err := m.FailUpdate(id, date); err != nil {
			return nil, err
		}
	}

	k := keyOf(id, date)
	occ, ok := m.occurrences[k]
	if !ok {
		return nil, wfh.ErrNotFound
	}

	occ.Status = upd.Status
	if upd.Reason != nil {
		occ.Reason = *upd.Reason
	}
	if upd.ApplyDate != nil {
		occ.ApplyDate = *upd.ApplyDate
	}
	m.occurrences[k] = occ
	return &occ, nil
}

func (m *Memory) CountSessionOccupants(_ context.Context, staff []wfh.StaffID, date wfh.Date, session wfh.Session, exclude wfh.OccurrenceKey) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countLocked(staff, date, session, exclude), nil
}

func (m *Memory) countLocked(staff []wfh.StaffID, date wfh.Date, session wfh.Session, exclude wfh.OccurrenceKey) int {
	inTeam := make(map[wfh.StaffID]bool, len(staff))
	for _, id := range staff {
		inTeam[id] = true
	}

	count := 0
	for _, occ := range m.occurrences {
		if !occ.SpecificDate.Equal(date) || !inTeam[occ.StaffID] {
			continue
		}
		if occ.RequestID == exclude.RequestID && occ.SpecificDate.Equal(exclude.SpecificDate) {
			continue
		}
		if !occ.OccupiesSlot() {
			continue
		}
		if (session == wfh.SessionAM && occ.IsAM) || (session == wfh.SessionPM && occ.IsPM) {
			count++
		}
	}
	return count
}

func (m *Memory) ListStalePending(_ context.Context, cutoff wfh.Date) ([]wfh.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var occs []wfh.Occurrence
	for _, occ := range m.occurrences {
		if occ.Status == wfh.StatusPending && occ.ApplyDate.Before(cutoff) {
			occs = append(occs, occ)
		}
	}
	sortByDate(occs)
	return occs, nil
}

func (m *Memory) AppendDecision(_ context.Context, d wfh.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *Memory) AppendWithdrawDecision(_ context.Context, d wfh.WithdrawDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawals = append(m.withdrawals, d)
	return nil
}

func (m *Memory) AppendStatusLog(_ context.Context, e wfh.StatusLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusLog = append(m.statusLog, e)
	return nil
}

func (m *Memory) ListStatusLog(_ context.Context, id wfh.RequestID) ([]wfh.StatusLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []wfh.StatusLogEntry
	for _, e := range m.statusLog {
		if e.RequestID == id {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Decisions returns a copy of the decision log (test inspection).
func (m *Memory) Decisions() []wfh.Decision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]wfh.Decision(nil), m.decisions...)
}

// WithdrawDecisions returns a copy of the withdraw-decision log.
func (m *Memory) WithdrawDecisions() []wfh.WithdrawDecision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]wfh.WithdrawDecision(nil), m.withdrawals...)
}

func sortByDate(occs []wfh.Occurrence) {
	sort.Slice(occs, func(i, j int) bool {
		return occs[i].SpecificDate.Before(occs[j].SpecificDate)
	})
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback
// =============================================================================

// WithTx holds the store lock for the whole function, which is what
// serializes concurrent check-then-write approval sequences. On error the
// pre-call snapshot is restored.
func (m *Memory) WithTx(ctx context.Context, fn func(wfh.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	occurrences map[occKey]wfh.Occurrence
	decisions   []wfh.Decision
	withdrawals []wfh.WithdrawDecision
	statusLog   []wfh.StatusLogEntry
}

func (m *Memory) snapshot() memorySnapshot {
	occs := make(map[occKey]wfh.Occurrence, len(m.occurrences))
	for k, v := range m.occurrences {
		occs[k] = v
	}
	return memorySnapshot{
		occurrences: occs,
		decisions:   append([]wfh.Decision(nil), m.decisions...),
		withdrawals: append([]wfh.WithdrawDecision(nil), m.withdrawals...),
		statusLog:   append([]wfh.StatusLogEntry(nil), m.statusLog...),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.occurrences = s.occurrences
	m.decisions = s.decisions
	m.withdrawals = s.withdrawals
	m.statusLog = s.statusLog
}

// txView runs against the parent's state without re-locking; the parent
// holds its lock for the duration of WithTx.
type txView struct {
	parent *Memory
}

func (tv *txView) CreateOccurrences(_ context.Context, occs []wfh.Occurrence) error {
	return tv.parent.createLocked(occs)
}

func (tv *txView) GetOccurrence(_ context.Context, id wfh.RequestID, date wfh.Date) (*wfh.Occurrence, error) {
	return tv.parent.getLocked(id, date), nil
}

func (tv *txView) ListByRequest(_ context.Context, id wfh.RequestID) ([]wfh.Occurrence, error) {
	return tv.parent.listByRequestLocked(id), nil
}

func (tv *txView) FindByStaffAndDate(_ context.Context, staffID wfh.StaffID, date wfh.Date) (*wfh.Occurrence, error) {
	return tv.parent.findByStaffAndDateLocked(staffID, date), nil
}

func (tv *txView) ListByStaff(_ context.Context, staffID wfh.StaffID, from, to wfh.Date) ([]wfh.Occurrence, error) {
	var occs []wfh.Occurrence
	for _, occ := range tv.parent.occurrences {
		if occ.StaffID == staffID && !occ.SpecificDate.Before(from) && !occ.SpecificDate.After(to) {
			occs = append(occs, occ)
		}
	}
	sortByDate(occs)
	return occs, nil
}

func (tv *txView) ListByManager(_ context.Context, managerID wfh.StaffID) ([]wfh.Occurrence, error) {
	var occs []wfh.Occurrence
	for _, occ := range tv.parent.occurrences {
		if occ.ManagerID == managerID {
			occs = append(occs, occ)
		}
	}
	sortByDate(occs)
	return occs, nil
}

func (tv *txView) UpdateStatus(_ context.Context, id wfh.RequestID, date wfh.Date, upd wfh.StatusUpdate) (*wfh.Occurrence, error) {
	return tv.parent.updateLocked(id, date, upd)
}

func (tv *txView) CountSessionOccupants(_ context.Context, staff []wfh.StaffID, date wfh.Date, session wfh.Session, exclude wfh.OccurrenceKey) (int, error) {
	return tv.parent.countLocked(staff, date, session, exclude), nil
}

func (tv *txView) ListStalePending(_ context.Context, cutoff wfh.Date) ([]wfh.Occurrence, error) {
	var occs []wfh.Occurrence
	for _, occ := range tv.parent.occurrences {
		if occ.Status == wfh.StatusPending && occ.ApplyDate.Before(cutoff) {
			occs = append(occs, occ)
		}
	}
	sortByDate(occs)
	return occs, nil
}

func (tv *txView) AppendDecision(_ context.Context, d wfh.Decision) error {
	tv.parent.decisions = append(tv.parent.decisions, d)
	return nil
}

func (tv *txView) AppendWithdrawDecision(_ context.Context, d wfh.WithdrawDecision) error {
	tv.parent.withdrawals = append(tv.parent.withdrawals, d)
	return nil
}

func (tv *txView) AppendStatusLog(_ context.Context, e wfh.StatusLogEntry) error {
	tv.parent.statusLog = append(tv.parent.statusLog, e)
	return nil
}

func (tv *txView) ListStatusLog(_ context.Context, id wfh.RequestID) ([]wfh.StatusLogEntry, error) {
	var entries []wfh.StatusLogEntry
	for _, e := range tv.parent.statusLog {
		if e.RequestID == id {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
