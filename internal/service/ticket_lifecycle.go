package service

import (
	"strings"

	"github.com/labdesk/lab-issue-service/internal/domain"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

// allowedTransitions lists the statuses reachable from each status.
// Resolved is terminal apart from re-saving its notes.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {domain.TicketStatusResolved},
}

// AllowedTransitions returns the statuses a ticket in current may be saved with.
func AllowedTransitions(current domain.TicketStatus) []domain.TicketStatus {
	next := allowedTransitions[current]
	out := make([]domain.TicketStatus, len(next))
	copy(out, next)
	return out
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CheckTransition validates moving a ticket from current to next with the given notes.
func CheckTransition(current, next domain.TicketStatus, notes string) error {
	if !next.Valid() {
		return apperrors.NewValidationError("validation failed", map[string]any{
			"new_status": "Status must be Open, InProgress or Resolved",
		})
	}
	if !isValidTransition(current, next) {
		return apperrors.NewInvalidTransition("cannot un-resolve a ticket", map[string]any{
			"current_status": string(current),
			"new_status":     string(next),
		})
	}
	if next == domain.TicketStatusResolved && strings.TrimSpace(notes) == "" {
		return apperrors.NewValidationError("validation failed", map[string]any{
			"resolution_notes": "Resolution notes are required when marking as Resolved",
		})
	}
	return nil
}
