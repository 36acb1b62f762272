package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "InProgress"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities for display: High=1, Medium=2, Low=3 and anything else 4.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityHigh:
		return 1
	case TicketPriorityMedium:
		return 2
	case TicketPriorityLow:
		return 3
	default:
		return 4
	}
}

// Ticket is a reported lab issue.
type Ticket struct {
	ID              int64
	ReportedBy      int64
	AssignedTo      *int64
	IPAddress       string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	ReportedAt      time.Time
	ResolvedAt      *time.Time
	ResolutionNotes *string
	LabName         *string
	ComputerName    *string
}

// TicketDetail is a ticket joined with its reporter and assignee.
type TicketDetail struct {
	Ticket
	Reporter *User
	Assignee *User
}
