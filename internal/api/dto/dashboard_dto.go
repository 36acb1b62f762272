package dto

import (
	"time"

	"github.com/labdesk/lab-issue-service/internal/domain"
)

// StatusCounts response.
type StatusCounts struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}

// PriorityCounts response.
type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// TicketSummary is a row of a recent tickets list.
type TicketSummary struct {
	TicketID       int64                 `json:"ticket_id"`
	IPAddress      string                `json:"ip_address"`
	IssueTitle     string                `json:"issue_title"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	ReportedDate   time.Time             `json:"reported_date"`
	ReportedByName *string               `json:"reported_by_name"`
	AssignedToName *string               `json:"assigned_to_name"`
}

// TechnicianStat is one row of the team performance table.
type TechnicianStat struct {
	UserID          int64  `json:"user_id"`
	Name            string `json:"name"`
	ResolvedCount   int    `json:"resolved_count"`
	InProgressCount int    `json:"in_progress_count"`
}

// DashboardResponse is the landing page of any role. Staff-only fields are omitted for students.
type DashboardResponse struct {
	Role                   domain.Role      `json:"role"`
	TotalTickets           int              `json:"total_tickets"`
	Counts                 StatusCounts     `json:"counts"`
	AverageResolutionHours *float64         `json:"average_resolution_hours,omitempty"`
	OpenByPriority         *PriorityCounts  `json:"open_by_priority,omitempty"`
	RecentTickets          []TicketSummary  `json:"recent_tickets"`
	TeamPerformance        []TechnicianStat `json:"team_performance,omitempty"`
	TotalStudents          *int             `json:"total_students,omitempty"`
	TotalNetworkTeam       *int             `json:"total_network_team,omitempty"`
}

// KeyCount is one bucket of a report grouping.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ResolutionTime is one row of the resolution time report.
type ResolutionTime struct {
	TicketID     int64     `json:"ticket_id"`
	IssueTitle   string    `json:"issue_title"`
	LabName      *string   `json:"lab_name"`
	ReportedDate time.Time `json:"reported_date"`
	ResolvedDate time.Time `json:"resolved_date"`
	Hours        float64   `json:"hours"`
}

// ReportsResponse is the faculty analytics page.
type ReportsResponse struct {
	ByLab                  []KeyCount       `json:"by_lab"`
	ByStatus               []KeyCount       `json:"by_status"`
	ByPriority             []KeyCount       `json:"by_priority"`
	ResolutionTimes        []ResolutionTime `json:"resolution_times"`
	AverageResolutionHours float64          `json:"average_resolution_hours"`
}
