/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

FIELD NAMES:
  JSON field names follow the existing client contract (staff_id,
  specific_date, is_am, ...), so the dates are plain YYYY-MM-DD strings and
  the request type discriminator is "Ad-hoc" / "Recurring".

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - wfh/types.go: The domain model these project
*/
package api

import (
	"github.com/warp/wfh-engine/wfh"
)

// Request type discriminator values for ApplyRequest.
const (
	RequestTypeAdhoc     = "Ad-hoc"
	RequestTypeRecurring = "Recurring"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ApplyRequest is the body for POST /api/apply. StartDate, EndDate and
// RecurrenceDays are only read when RequestType is "Recurring";
// SpecificDate only when it is "Ad-hoc".
type ApplyRequest struct {
	StaffID        int    `json:"staff_id"`
	RequestType    string `json:"request_type"`
	SpecificDate   string `json:"specific_date,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	RecurrenceDays string `json:"recurrence_days,omitempty"`
	IsAM           bool   `json:"is_am"`
	IsPM           bool   `json:"is_pm"`
	ApplyDate      string `json:"apply_date"`
	Reason         string `json:"request_reason"`
}

// DecisionRequest is the body for POST /api/approve and
// POST /api/approve_recurring. SpecificDate is optional for single-date
// requests and ignored for the recurring endpoint.
type DecisionRequest struct {
	RequestID      string `json:"request_id"`
	SpecificDate   string `json:"specific_date,omitempty"`
	ManagerID      int    `json:"manager_id"`
	DecisionStatus string `json:"decision_status"`
	DecisionNotes  string `json:"decision_notes,omitempty"`
}

// WithdrawRequest is the body for POST /api/withdraw.
type WithdrawRequest struct {
	RequestID    string `json:"request_id"`
	SpecificDate string `json:"specific_date"`
	Reason       string `json:"withdraw_reason,omitempty"`
}

// WithdrawDecisionRequest is the body for POST /api/withdraw/decision.
type WithdrawDecisionRequest struct {
	RequestID      string `json:"request_id"`
	SpecificDate   string `json:"specific_date"`
	ManagerID      int    `json:"manager_id"`
	DecisionStatus string `json:"decision_status"`
	DecisionNotes  string `json:"decision_notes,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// OccurrenceDTO represents one WFH occurrence in API responses.
type OccurrenceDTO struct {
	RequestID    string `json:"request_id"`
	SpecificDate string `json:"specific_date"`
	StaffID      int    `json:"staff_id"`
	ManagerID    int    `json:"manager_id"`
	IsAM         bool   `json:"is_am"`
	IsPM         bool   `json:"is_pm"`
	Status       string `json:"status"`
	ApplyDate    string `json:"apply_date"`
	Reason       string `json:"request_reason,omitempty"`
}

func toOccurrenceDTO(occ wfh.Occurrence) OccurrenceDTO {
	return OccurrenceDTO{
		RequestID:    string(occ.RequestID),
		SpecificDate: occ.SpecificDate.String(),
		StaffID:      int(occ.StaffID),
		ManagerID:    int(occ.ManagerID),
		IsAM:         occ.IsAM,
		IsPM:         occ.IsPM,
		Status:       string(occ.Status),
		ApplyDate:    occ.ApplyDate.String(),
		Reason:       occ.Reason,
	}
}

func toOccurrenceDTOs(occs []wfh.Occurrence) []OccurrenceDTO {
	dtos := make([]OccurrenceDTO, len(occs))
	for i, occ := range occs {
		dtos[i] = toOccurrenceDTO(occ)
	}
	return dtos
}

// EmployeeDTO represents a directory record in API responses.
type EmployeeDTO struct {
	StaffID          int    `json:"staff_id"`
	FirstName        string `json:"staff_fname"`
	LastName         string `json:"staff_lname"`
	Dept             string `json:"dept"`
	Position         string `json:"position"`
	Country          string `json:"country"`
	Email            string `json:"email"`
	ReportingManager int    `json:"reporting_manager,omitempty"`
	Role             int    `json:"role"`
}

func toEmployeeDTO(e wfh.Employee) EmployeeDTO {
	return EmployeeDTO{
		StaffID:          int(e.StaffID),
		FirstName:        e.FirstName,
		LastName:         e.LastName,
		Dept:             e.Dept,
		Position:         e.Position,
		Country:          e.Country,
		Email:            e.Email,
		ReportingManager: int(e.ReportingManager),
		Role:             e.Role,
	}
}

func toEmployeeDTOs(employees []wfh.Employee) []EmployeeDTO {
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	return dtos
}

// StatusLogDTO represents one status-log entry in API responses.
type StatusLogDTO struct {
	LogDatetime  string `json:"log_datetime"`
	RequestID    string `json:"request_id"`
	SpecificDate string `json:"specific_date"`
	Status       string `json:"status"`
	ApplyDate    string `json:"apply_date"`
	Reason       string `json:"reason,omitempty"`
}

// SweepResultDTO is the response of POST /api/admin/auto_reject.
type SweepResultDTO struct {
	Cancelled int `json:"cancelled"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
