package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wfh-engine/api"
	"github.com/warp/wfh-engine/wfh"
	"github.com/warp/wfh-engine/wfh/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testToday = wfh.NewDate(2024, time.September, 10)

func newTestRouter(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	mem.AddEmployee(wfh.Employee{StaffID: 140001, FirstName: "Derek", LastName: "Tan", Role: wfh.RoleDirector, ReportingManager: 140001})
	mem.AddEmployee(wfh.Employee{StaffID: 140008, FirstName: "Jaclyn", LastName: "Lee", Role: wfh.RoleStaff, ReportingManager: 140001})
	mem.AddEmployee(wfh.Employee{StaffID: 140009, FirstName: "Mei", LastName: "Lin", Role: wfh.RoleManager, ReportingManager: 140001})
	for _, id := range []wfh.StaffID{140010, 140011, 140012, 140013} {
		mem.AddEmployee(wfh.Employee{StaffID: id, Role: wfh.RoleStaff, ReportingManager: 140009})
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	engine := wfh.NewEngine(mem, mem, log)
	engine.Now = func() wfh.Date { return testToday }
	sweep := &wfh.AutoRejectSweep{Store: mem, Log: log}

	handler := api.NewHandler(engine, sweep, mem, mem, log)
	handler.Now = func() wfh.Date { return testToday }

	return api.NewRouter(handler, []string{"http://localhost:5173"}), mem
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeOccurrences(t *testing.T, rr *httptest.ResponseRecorder) []api.OccurrenceDTO {
	t.Helper()

	var occs []api.OccurrenceDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&occs))
	return occs
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()

	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func applyAdhoc(t *testing.T, router http.Handler, staffID int, date string) api.OccurrenceDTO {
	t.Helper()

	rr := doJSON(t, router, http.MethodPost, "/api/apply", api.ApplyRequest{
		StaffID:      staffID,
		RequestType:  api.RequestTypeAdhoc,
		SpecificDate: date,
		IsAM:         true,
		ApplyDate:    testToday.String(),
		Reason:       "focus work",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	occs := decodeOccurrences(t, rr)
	require.Len(t, occs, 1)
	return occs[0]
}

// =============================================================================
// APPLY
// =============================================================================

func TestAPI_ApplyAdhoc(t *testing.T) {
	router, _ := newTestRouter(t)

	occ := applyAdhoc(t, router, 140010, "2024-09-20")

	assert.Equal(t, "Pending", occ.Status)
	assert.Equal(t, 140009, occ.ManagerID)
	assert.Equal(t, "2024-09-20", occ.SpecificDate)
	assert.NotEmpty(t, occ.RequestID)
}

func TestAPI_ApplyInvalidDate(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/apply", api.ApplyRequest{
		StaffID:      140010,
		RequestType:  api.RequestTypeAdhoc,
		SpecificDate: "20-09-2024",
		IsAM:         true,
		ApplyDate:    testToday.String(),
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid date format, please use YYYY-MM-DD", decodeError(t, rr).Error)
}

func TestAPI_ApplyDuplicate(t *testing.T) {
	router, _ := newTestRouter(t)
	applyAdhoc(t, router, 140010, "2024-09-20")

	rr := doJSON(t, router, http.MethodPost, "/api/apply", api.ApplyRequest{
		StaffID:      140010,
		RequestType:  api.RequestTypeAdhoc,
		SpecificDate: "2024-09-20",
		IsPM:         true,
		ApplyDate:    testToday.String(),
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Staff has an existing request for 2024-09-20", decodeError(t, rr).Error)
}

func TestAPI_ApplyUnknownStaff(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/apply", api.ApplyRequest{
		StaffID:      999,
		RequestType:  api.RequestTypeAdhoc,
		SpecificDate: "2024-09-20",
		IsAM:         true,
		ApplyDate:    testToday.String(),
	})

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Employee with staff_id 999 not found", decodeError(t, rr).Error)
}

func TestAPI_ApplyBadRequestType(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/apply", api.ApplyRequest{
		StaffID:      140010,
		RequestType:  "Sometimes",
		SpecificDate: "2024-09-20",
		ApplyDate:    testToday.String(),
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_ApplyRecurring(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/apply", api.ApplyRequest{
		StaffID:        140010,
		RequestType:    api.RequestTypeRecurring,
		StartDate:      "2024-09-15",
		EndDate:        "2024-09-29",
		RecurrenceDays: "monday",
		IsAM:           true,
		ApplyDate:      testToday.String(),
	})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	occs := decodeOccurrences(t, rr)
	require.Len(t, occs, 2)
	assert.Equal(t, "2024-09-16", occs[0].SpecificDate)
	assert.Equal(t, "2024-09-23", occs[1].SpecificDate)
	assert.Equal(t, occs[0].RequestID, occs[1].RequestID)
}

// =============================================================================
// DECIDE
// =============================================================================

func TestAPI_ApproveAndCapacity(t *testing.T) {
	// Two of a four-person team approved for AM; the third approval breaches.
	router, _ := newTestRouter(t)

	for _, staffID := range []int{140010, 140011} {
		occ := applyAdhoc(t, router, staffID, "2024-09-20")
		rr := doJSON(t, router, http.MethodPost, "/api/approve", api.DecisionRequest{
			RequestID:      occ.RequestID,
			ManagerID:      140009,
			DecisionStatus: "Approved",
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	third := applyAdhoc(t, router, 140012, "2024-09-20")
	rr := doJSON(t, router, http.MethodPost, "/api/approve", api.DecisionRequest{
		RequestID:      third.RequestID,
		ManagerID:      140009,
		DecisionStatus: "Approved",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Exceed 0.5 rule limit for AM session", decodeError(t, rr).Error)
}

func TestAPI_ApproveWrongManager(t *testing.T) {
	router, _ := newTestRouter(t)
	occ := applyAdhoc(t, router, 140008, "2024-09-20")

	rr := doJSON(t, router, http.MethodPost, "/api/approve", api.DecisionRequest{
		RequestID:      occ.RequestID,
		ManagerID:      140009,
		DecisionStatus: "Approved",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Employee 140008 reports under 140001 instead of 140009", decodeError(t, rr).Error)
}

func TestAPI_ApproveUnknownRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/approve", api.DecisionRequest{
		RequestID:      "no-such-request",
		ManagerID:      140009,
		DecisionStatus: "Approved",
	})

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_ApproveRecurringGroup(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/apply", api.ApplyRequest{
		StaffID:        140010,
		RequestType:    api.RequestTypeRecurring,
		StartDate:      "2024-09-15",
		EndDate:        "2024-09-29",
		RecurrenceDays: "monday",
		IsAM:           true,
		ApplyDate:      testToday.String(),
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	requestID := decodeOccurrences(t, rr)[0].RequestID

	rr = doJSON(t, router, http.MethodPost, "/api/approve_recurring", api.DecisionRequest{
		RequestID:      requestID,
		ManagerID:      140009,
		DecisionStatus: "Approved",
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	for _, occ := range decodeOccurrences(t, rr) {
		assert.Equal(t, "Approved", occ.Status)
	}
}

// =============================================================================
// WITHDRAW AND CANCEL
// =============================================================================

func TestAPI_WithdrawalRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t)
	occ := applyAdhoc(t, router, 140010, "2024-09-20")

	rr := doJSON(t, router, http.MethodPost, "/api/approve", api.DecisionRequest{
		RequestID:      occ.RequestID,
		ManagerID:      140009,
		DecisionStatus: "Approved",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/withdraw", api.WithdrawRequest{
		RequestID:    occ.RequestID,
		SpecificDate: "2024-09-20",
		Reason:       "plans changed",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var updated api.OccurrenceDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&updated))
	assert.Equal(t, "Pending_Withdraw", updated.Status)

	rr = doJSON(t, router, http.MethodPost, "/api/withdraw/decision", api.WithdrawDecisionRequest{
		RequestID:      occ.RequestID,
		SpecificDate:   "2024-09-20",
		ManagerID:      140009,
		DecisionStatus: "Approved",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&updated))
	assert.Equal(t, "Withdrawn", updated.Status)
}

func TestAPI_CancelPending(t *testing.T) {
	router, mem := newTestRouter(t)
	occ := applyAdhoc(t, router, 140010, "2024-09-20")

	rr := doJSON(t, router, http.MethodPut,
		"/api/staff/140010/cancel/"+occ.RequestID+"/2024-09-20", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	stored, err := mem.GetOccurrence(context.Background(), wfh.RequestID(occ.RequestID), wfh.NewDate(2024, time.September, 20))
	require.NoError(t, err)
	assert.Equal(t, wfh.StatusCancelled, stored.Status)
}

func TestAPI_CancelOutsideWindow(t *testing.T) {
	router, _ := newTestRouter(t)
	occ := applyAdhoc(t, router, 140010, "2024-09-25") // 15 days out

	rr := doJSON(t, router, http.MethodPut,
		"/api/staff/140010/cancel/"+occ.RequestID+"/2024-09-25", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t,
		"Cancellation allowed only for requests within 2 weeks from the specific date of 2024-09-25",
		decodeError(t, rr).Error)
}

// =============================================================================
// QUERIES AND ADMIN
// =============================================================================

func TestAPI_StaffRequests(t *testing.T) {
	router, _ := newTestRouter(t)
	applyAdhoc(t, router, 140010, "2024-09-20")
	applyAdhoc(t, router, 140010, "2024-10-04")

	rr := doJSON(t, router, http.MethodGet,
		"/api/staff/140010/requests?start=2024-09-01&end=2024-09-30", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	occs := decodeOccurrences(t, rr)
	require.Len(t, occs, 1)
	assert.Equal(t, "2024-09-20", occs[0].SpecificDate)
}

func TestAPI_GetRequestAndLogs(t *testing.T) {
	router, _ := newTestRouter(t)
	occ := applyAdhoc(t, router, 140010, "2024-09-20")

	rr := doJSON(t, router, http.MethodGet, "/api/requests/"+occ.RequestID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeOccurrences(t, rr), 1)

	rr = doJSON(t, router, http.MethodGet, "/api/requests/"+occ.RequestID+"/logs", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var logs []api.StatusLogDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "Pending", logs[0].Status)

	rr = doJSON(t, router, http.MethodGet, "/api/requests/no-such-request", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_Employees(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var employees []api.EmployeeDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&employees))
	assert.Len(t, employees, 7)

	rr = doJSON(t, router, http.MethodGet, "/api/employees/140009", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/employees/999", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/employees/140009/team", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&employees))
	assert.Len(t, employees, 4, "manager team is the transitive reports")

	// A role-2 staff member's team is their direct peers.
	rr = doJSON(t, router, http.MethodGet, "/api/employees/140010/team", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&employees))
	assert.Len(t, employees, 4)

	rr = doJSON(t, router, http.MethodGet, "/api/employees/999/team", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_AutoRejectSweep(t *testing.T) {
	router, mem := newTestRouter(t)

	stale := wfh.Occurrence{
		RequestID:    "r-stale",
		SpecificDate: wfh.NewDate(2024, time.October, 1),
		StaffID:      140010,
		ManagerID:    140009,
		IsAM:         true,
		Status:       wfh.StatusPending,
		ApplyDate:    wfh.NewDate(2024, time.June, 1),
	}
	require.NoError(t, mem.CreateOccurrences(context.Background(), []wfh.Occurrence{stale}))

	rr := doJSON(t, router, http.MethodPost, "/api/admin/auto_reject", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var result api.SweepResultDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&result))
	assert.Equal(t, 1, result.Cancelled)
}
