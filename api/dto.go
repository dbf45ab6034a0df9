/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request structs carry validator tags; handlers call validate.Struct before
  using them.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/wfm-interface/schedule"
	"github.com/warp/wfm-interface/store/sqlite"
)

// RunRequest starts a reconciliation run. Empty dates fall back to the
// history prefill; nil flags fall back to the configured defaults.
type RunRequest struct {
	From            string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To              string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Overwrite       *bool  `json:"overwrite,omitempty"`
	ResetExceptions *bool  `json:"reset_exceptions,omitempty"`
}

// RunDTO summarizes a committed run.
type RunDTO struct {
	RunID          string         `json:"run_id"`
	From           string         `json:"from"`
	To             string         `json:"to"`
	Employees      int            `json:"employees"`
	ShiftsMerged   int            `json:"shifts_merged"`
	Written        int            `json:"written"`
	Overwritten    int            `json:"overwritten"`
	Abandoned      int            `json:"abandoned"`
	ExceptionCount int            `json:"exception_count"`
	NextID         int64          `json:"next_id"`
	Status         string         `json:"status"`
	Exceptions     []ExceptionDTO `json:"exceptions"`
	StartedAt      string         `json:"started_at"`
	FinishedAt     string         `json:"finished_at"`
}

// ExceptionDTO is one row of the exception report.
type ExceptionDTO struct {
	ID           int64  `json:"id"`
	EmployeeNo   string `json:"employee_no"`
	EmployeeName string `json:"employee_name"`
	ScheduleDate string `json:"schedule_date"`
	ScheduleType string `json:"schedule_type"`
	Workgroup    string `json:"workgroup"`
	Remarks      string `json:"remarks"`
	CreatedBy    string `json:"created_by"`
	CreatedDate  string `json:"created_date"`
}

// AssignmentDTO is one schedule assignment.
type AssignmentDTO struct {
	ID           int64  `json:"id"`
	ReferenceID  int64  `json:"refer_id"`
	BadgeNo      string `json:"badge_no"`
	EmployeeNo   string `json:"employee_no"`
	ScheduleDate string `json:"schedule_date"`
	SeqNo        int    `json:"seq_no"`
	ScheduleType string `json:"schedule_type"`
	CreatedBy    string `json:"created_by"`
	CreatedDate  string `json:"created_date"`
}

// HistoryDTO is the last processed range and the prefill for the next run.
type HistoryDTO struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	NextFrom string `json:"next_from"`
	NextTo   string `json:"next_to"`
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toExceptionDTO(e schedule.ExceptionRecord) ExceptionDTO {
	return ExceptionDTO{
		ID:           e.ID,
		EmployeeNo:   string(e.EmployeeID),
		EmployeeName: e.EmployeeName,
		ScheduleDate: e.Date.String(),
		ScheduleType: e.ScheduleType,
		Workgroup:    string(e.Workgroup),
		Remarks:      e.Remarks,
		CreatedBy:    e.CreatedBy,
		CreatedDate:  e.CreatedAt.Format(sqlite.TimestampLayout),
	}
}

func toExceptionDTOs(records []schedule.ExceptionRecord) []ExceptionDTO {
	dtos := make([]ExceptionDTO, len(records))
	for i, e := range records {
		dtos[i] = toExceptionDTO(e)
	}
	return dtos
}

func toAssignmentDTO(a schedule.ScheduleAssignment) AssignmentDTO {
	return AssignmentDTO{
		ID:           a.ID,
		ReferenceID:  int64(a.ReferenceID),
		BadgeNo:      a.BadgeNo,
		EmployeeNo:   string(a.EmployeeID),
		ScheduleDate: a.Date.String(),
		SeqNo:        a.Sequence,
		ScheduleType: a.ScheduleType,
		CreatedBy:    a.CreatedBy,
		CreatedDate:  a.CreatedAt.Format(sqlite.TimestampLayout),
	}
}

func toRunDTO(res *schedule.RunResult) RunDTO {
	return RunDTO{
		RunID:          res.RunID,
		From:           res.Range.From.String(),
		To:             res.Range.To.String(),
		Employees:      res.Employees,
		ShiftsMerged:   res.ShiftsMerged,
		Written:        res.Written,
		Overwritten:    res.Overwritten,
		Abandoned:      res.Abandoned,
		ExceptionCount: res.ExceptionCount,
		NextID:         res.NextID,
		Status:         res.Status,
		Exceptions:     toExceptionDTOs(res.Exceptions),
		StartedAt:      res.StartedAt.Format(time.RFC3339),
		FinishedAt:     res.FinishedAt.Format(time.RFC3339),
	}
}
