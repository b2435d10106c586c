/*
handlers.go - HTTP API handlers for the WFH request engine

PURPOSE:
  Exposes the WFH engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Requests:
    POST   /api/apply                 Submit an ad-hoc or recurring request
    POST   /api/approve               Approve/reject one occurrence
    POST   /api/approve_recurring     Approve/reject a whole recurring group
    POST   /api/withdraw              Staff requests withdrawal of an approval
    POST   /api/withdraw/decision     Manager settles a withdrawal request
    PUT    /api/staff/{staff_id}/cancel/{request_id}/{date}
                                      Staff cancels their own pending request
    GET    /api/requests/{request_id}        Occurrences of one request
    GET    /api/requests/{request_id}/logs   Status-change trail

  Schedules:
    GET    /api/staff/{staff_id}/requests    Occurrences for one staff member
    GET    /api/manager/{manager_id}/requests Occurrences awaiting a manager

  Employees:
    GET    /api/employees             List the directory
    GET    /api/employees/{staff_id}  One directory record
    GET    /api/employees/{staff_id}/team Transitive team under a manager

  Admin:
    POST   /api/admin/auto_reject     Run the stale-request sweep now

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, sweep, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, business-rule failures (wfh.IsClientError)
  - 404: Missing occurrences, staff, managers (wfh.IsNotFound)
  - 500: Store failures

SECURITY NOTE:
  Currently NO authentication or authorization. The acting staff/manager id
  comes from the request body. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: The cron trigger behind /api/admin/auto_reject
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/wfh-engine/wfh"
)

const invalidDateMessage = "Invalid date format, please use YYYY-MM-DD"

// Roster is the directory surface the API needs on top of wfh.Directory.
type Roster interface {
	wfh.Directory
	ListEmployees(ctx context.Context) ([]wfh.Employee, error)
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *wfh.Engine
	Sweep  *wfh.AutoRejectSweep
	Store  wfh.TxStore
	Roster Roster
	Log    *logrus.Logger

	// Now supplies "today" for the admin sweep and schedule defaults.
	// Nil means the wall clock; tests pin it.
	Now func() wfh.Date
}

// NewHandler creates a new handler around an engine and its store.
func NewHandler(engine *wfh.Engine, sweep *wfh.AutoRejectSweep, store wfh.TxStore, roster Roster, log *logrus.Logger) *Handler {
	return &Handler{
		Engine: engine,
		Sweep:  sweep,
		Store:  store,
		Roster: roster,
		Log:    log,
	}
}

func (h *Handler) today() wfh.Date {
	if h.Now != nil {
		return h.Now()
	}
	return wfh.Today()
}

func (h *Handler) log() *logrus.Logger {
	if h.Log != nil {
		return h.Log
	}
	return logrus.StandardLogger()
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// Apply submits a new WFH request.
// POST /api/apply
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	applyDate, ok := h.parseDate(w, req.ApplyDate)
	if !ok {
		return
	}

	switch req.RequestType {
	case RequestTypeAdhoc:
		specificDate, ok := h.parseDate(w, req.SpecificDate)
		if !ok {
			return
		}
		occ, err := h.Engine.ApplyAdhoc(r.Context(), wfh.AdhocInput{
			StaffID:      wfh.StaffID(req.StaffID),
			SpecificDate: specificDate,
			IsAM:         req.IsAM,
			IsPM:         req.IsPM,
			ApplyDate:    applyDate,
			Reason:       req.Reason,
		})
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, []OccurrenceDTO{toOccurrenceDTO(*occ)})

	case RequestTypeRecurring:
		startDate, ok := h.parseDate(w, req.StartDate)
		if !ok {
			return
		}
		endDate, ok := h.parseDate(w, req.EndDate)
		if !ok {
			return
		}
		occs, err := h.Engine.ApplyRecurring(r.Context(), wfh.RecurringInput{
			StaffID:        wfh.StaffID(req.StaffID),
			StartDate:      startDate,
			EndDate:        endDate,
			RecurrenceDays: req.RecurrenceDays,
			IsAM:           req.IsAM,
			IsPM:           req.IsPM,
			ApplyDate:      applyDate,
			Reason:         req.Reason,
		})
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toOccurrenceDTOs(occs))

	default:
		writeError(w, http.StatusBadRequest, "request_type must be Ad-hoc or Recurring", nil)
	}
}

// Decide applies a manager's approve/reject decision to one occurrence.
// POST /api/approve
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := wfh.DecisionInput{
		RequestID: wfh.RequestID(req.RequestID),
		ManagerID: wfh.StaffID(req.ManagerID),
		Status:    wfh.DecisionStatus(req.DecisionStatus),
		Notes:     req.DecisionNotes,
	}
	if req.SpecificDate != "" {
		date, ok := h.parseDate(w, req.SpecificDate)
		if !ok {
			return
		}
		in.SpecificDate = &date
	}

	occ, err := h.Engine.DecideRequest(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTO(*occ))
}

// DecideRecurring applies one decision to every occurrence of a request.
// POST /api/approve_recurring
func (h *Handler) DecideRecurring(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	occs, err := h.Engine.DecideRecurring(r.Context(), wfh.DecisionInput{
		RequestID: wfh.RequestID(req.RequestID),
		ManagerID: wfh.StaffID(req.ManagerID),
		Status:    wfh.DecisionStatus(req.DecisionStatus),
		Notes:     req.DecisionNotes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTOs(occs))
}

// Withdraw moves an approved occurrence to Pending_Withdraw.
// POST /api/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, ok := h.parseDate(w, req.SpecificDate)
	if !ok {
		return
	}

	occ, err := h.Engine.RequestWithdrawal(r.Context(), wfh.RequestID(req.RequestID), date, req.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTO(*occ))
}

// DecideWithdrawal settles a pending withdrawal.
// POST /api/withdraw/decision
func (h *Handler) DecideWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req WithdrawDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, ok := h.parseDate(w, req.SpecificDate)
	if !ok {
		return
	}

	occ, err := h.Engine.DecideWithdrawal(r.Context(), wfh.WithdrawalDecisionInput{
		RequestID:    wfh.RequestID(req.RequestID),
		SpecificDate: date,
		ManagerID:    wfh.StaffID(req.ManagerID),
		Status:       wfh.DecisionStatus(req.DecisionStatus),
		Notes:        req.DecisionNotes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTO(*occ))
}

// CancelPending cancels a staff member's own pending occurrence.
// PUT /api/staff/{staff_id}/cancel/{request_id}/{date}
func (h *Handler) CancelPending(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.parseStaffID(w, chi.URLParam(r, "staffID"))
	if !ok {
		return
	}
	date, ok := h.parseDate(w, chi.URLParam(r, "date"))
	if !ok {
		return
	}
	requestID := wfh.RequestID(chi.URLParam(r, "requestID"))

	if err := h.Engine.CancelPending(r.Context(), staffID, requestID, date); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(wfh.StatusCancelled)})
}

// GetRequest returns every occurrence of one request.
// GET /api/requests/{request_id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := wfh.RequestID(chi.URLParam(r, "requestID"))

	occs, err := h.Store.ListByRequest(r.Context(), requestID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list request", err)
		return
	}
	if len(occs) == 0 {
		writeError(w, http.StatusNotFound, wfh.ErrNotFound.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTOs(occs))
}

// GetRequestLogs returns the status-change trail of one request.
// GET /api/requests/{request_id}/logs
func (h *Handler) GetRequestLogs(w http.ResponseWriter, r *http.Request) {
	requestID := wfh.RequestID(chi.URLParam(r, "requestID"))

	entries, err := h.Store.ListStatusLog(r.Context(), requestID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list status log", err)
		return
	}

	dtos := make([]StatusLogDTO, len(entries))
	for i, e := range entries {
		dtos[i] = StatusLogDTO{
			LogDatetime:  e.LogTime.Format("2006-01-02T15:04:05Z07:00"),
			RequestID:    string(e.RequestID),
			SpecificDate: e.SpecificDate.String(),
			Status:       string(e.Status),
			ApplyDate:    e.ApplyDate.String(),
			Reason:       e.Reason,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// scheduleWindowMonths bounds the default staff schedule query range.
const scheduleWindowMonths = 3

// StaffRequests returns a staff member's occurrences in a date range.
// Defaults to three months either side of today.
// GET /api/staff/{staff_id}/requests?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) StaffRequests(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.parseStaffID(w, chi.URLParam(r, "staffID"))
	if !ok {
		return
	}

	from := h.today().AddMonths(-scheduleWindowMonths)
	to := h.today().AddMonths(scheduleWindowMonths)
	if s := r.URL.Query().Get("start"); s != "" {
		if from, ok = h.parseDate(w, s); !ok {
			return
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if to, ok = h.parseDate(w, s); !ok {
			return
		}
	}

	occs, err := h.Store.ListByStaff(r.Context(), staffID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list staff requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTOs(occs))
}

// ManagerRequests returns every occurrence recorded under a manager.
// GET /api/manager/{manager_id}/requests
func (h *Handler) ManagerRequests(w http.ResponseWriter, r *http.Request) {
	managerID, ok := h.parseStaffID(w, chi.URLParam(r, "managerID"))
	if !ok {
		return
	}

	occs, err := h.Store.ListByManager(r.Context(), managerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list manager requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTOs(occs))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the whole directory.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Roster.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTOs(employees))
}

// GetEmployee returns one directory record.
// GET /api/employees/{staff_id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.parseStaffID(w, chi.URLParam(r, "staffID"))
	if !ok {
		return
	}

	e, err := h.Roster.EmployeeByID(r.Context(), staffID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, (&wfh.StaffNotFoundError{StaffID: staffID}).Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*e))
}

// GetTeam returns the transitive team under a manager, or the direct peers
// of a non-managing staff member.
// GET /api/employees/{staff_id}/team
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.parseStaffID(w, chi.URLParam(r, "staffID"))
	if !ok {
		return
	}

	e, err := h.Roster.EmployeeByID(r.Context(), staffID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, (&wfh.StaffNotFoundError{StaffID: staffID}).Error(), nil)
		return
	}

	var team []wfh.Employee
	if e.CanManage() {
		team, err = wfh.FullTeam(r.Context(), h.Roster, staffID)
	} else {
		team, err = wfh.TeamOf(r.Context(), h.Roster, staffID)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTOs(team))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// AutoReject runs the stale-request sweep immediately.
// POST /api/admin/auto_reject
func (h *Handler) AutoReject(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.Sweep.Run(r.Context(), h.today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Auto-reject sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResultDTO{Cancelled: cancelled})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) parseDate(w http.ResponseWriter, s string) (wfh.Date, bool) {
	date, err := wfh.ParseDate(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, invalidDateMessage, nil)
		return wfh.Date{}, false
	}
	return date, true
}

func (h *Handler) parseStaffID(w http.ResponseWriter, s string) (wfh.StaffID, bool) {
	id, err := strconv.Atoi(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid staff id", nil)
		return 0, false
	}
	return wfh.StaffID(id), true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case wfh.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case wfh.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.log().WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
