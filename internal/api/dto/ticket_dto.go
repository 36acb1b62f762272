package dto

import (
	"time"

	"github.com/labdesk/lab-issue-service/internal/domain"
)

// ReportIssueRequest payload. Form tags accept classic form posts as well as JSON.
type ReportIssueRequest struct {
	IPAddress        string                `json:"ip_address" form:"ip_address"`
	IssueTitle       string                `json:"issue_title" form:"issue_title"`
	IssueDescription string                `json:"issue_description" form:"issue_description"`
	LabName          string                `json:"lab_name" form:"lab_name"`
	ComputerName     string                `json:"computer_name" form:"computer_name"`
	Priority         domain.TicketPriority `json:"priority" form:"priority"`
}

// ReportIssueForm pre-fills the report form.
type ReportIssueForm struct {
	IPAddress  string                  `json:"ip_address"`
	Priority   domain.TicketPriority   `json:"priority"`
	Priorities []domain.TicketPriority `json:"priorities"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status          domain.TicketStatus `json:"status" form:"status"`
	ResolutionNotes string              `json:"resolution_notes" form:"resolution_notes"`
}

// UpdateStatusForm describes the current ticket and the statuses it may move to.
type UpdateStatusForm struct {
	Ticket          TicketResponse        `json:"ticket"`
	AllowedStatuses []domain.TicketStatus `json:"allowed_statuses"`
}

// TicketResponse is the display projection of a ticket.
type TicketResponse struct {
	TicketID         int64                 `json:"ticket_id"`
	IPAddress        string                `json:"ip_address"`
	IssueTitle       string                `json:"issue_title"`
	IssueDescription string                `json:"issue_description"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	ReportedDate     time.Time             `json:"reported_date"`
	ResolvedDate     *time.Time            `json:"resolved_date"`
	ReportedByName   *string               `json:"reported_by_name"`
	AssignedToName   *string               `json:"assigned_to_name"`
	ResolutionNotes  *string               `json:"resolution_notes"`
	LabName          *string               `json:"lab_name"`
	ComputerName     *string               `json:"computer_name"`
}

// TicketDetailResponse adds the audit trail to a ticket.
type TicketDetailResponse struct {
	TicketResponse
	History []TicketHistoryResponse `json:"history,omitempty"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          int64                   `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID *int64                  `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// TicketListFilters echoes the filters applied to a list view.
type TicketListFilters struct {
	SearchString   string `json:"search_string"`
	StatusFilter   string `json:"status_filter"`
	PriorityFilter string `json:"priority_filter"`
	SortBy         string `json:"sort_by,omitempty"`
}

// TicketListResponse is a filtered ticket view.
type TicketListResponse struct {
	Tickets []TicketResponse  `json:"tickets"`
	Filters TicketListFilters `json:"filters"`
}
