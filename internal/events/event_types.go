package events

import (
	"time"

	"github.com/labdesk/lab-issue-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketReported      EventType = "ticket_reported"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventUserRegistered      EventType = "user_registered"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketReportedPayload payload.
type TicketReportedPayload struct {
	Priority  domain.TicketPriority `json:"priority"`
	IPAddress string                `json:"ip_address"`
	LabName   string                `json:"lab_name,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAssignee *int64 `json:"old_assignee,omitempty"`
	NewAssignee int64  `json:"new_assignee"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}
