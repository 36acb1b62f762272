package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/labdesk/lab-issue-service/internal/api/dto"
	"github.com/labdesk/lab-issue-service/internal/auth"
	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/service"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

// Query parameter names shared by the ticket list views.
const (
	querySearch   = "searchString"
	queryStatus   = "statusFilter"
	queryPriority = "priorityFilter"
	querySortBy   = "sortBy"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

// parseTicketID treats a malformed id like a missing ticket.
func parseTicketID(c *fiber.Ctx) (int64, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": raw})
	}
	return id, nil
}

func parseTicketQuery(c *fiber.Ctx, withSort bool) service.TicketQuery {
	q := service.TicketQuery{
		Search:   c.Query(querySearch),
		Status:   c.Query(queryStatus),
		Priority: c.Query(queryPriority),
	}
	if withSort {
		q.SortBy = c.Query(querySortBy)
	}
	return q
}

// ClientIP resolves the caller's address: first X-Forwarded-For entry,
// then X-Real-IP, then the socket address.
func ClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return c.IP()
}

func ticketListResponse(tickets []domain.TicketDetail, q service.TicketQuery) dto.TicketListResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return dto.TicketListResponse{
		Tickets: items,
		Filters: dto.TicketListFilters{
			SearchString:   q.Search,
			StatusFilter:   q.Status,
			PriorityFilter: q.Priority,
			SortBy:         q.SortBy,
		},
	}
}

func ticketResponse(t *domain.TicketDetail) dto.TicketResponse {
	return dto.TicketResponse{
		TicketID:         t.ID,
		IPAddress:        t.IPAddress,
		IssueTitle:       t.Title,
		IssueDescription: t.Description,
		Status:           t.Status,
		Priority:         t.Priority,
		ReportedDate:     t.ReportedAt,
		ResolvedDate:     t.ResolvedAt,
		ReportedByName:   userName(t.Reporter),
		AssignedToName:   userName(t.Assignee),
		ResolutionNotes:  t.ResolutionNotes,
		LabName:          t.LabName,
		ComputerName:     t.ComputerName,
	}
}

// plainTicketResponse is used right after a mutation, before names are joined in.
func plainTicketResponse(t *domain.Ticket) dto.TicketResponse {
	return ticketResponse(&domain.TicketDetail{Ticket: *t})
}

func ticketDetailResponse(t *domain.TicketDetail, history []domain.TicketHistory) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(t),
		History:        historyResponses(history),
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	if len(entries) == 0 {
		return nil
	}
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}

func userName(u *domain.User) *string {
	if u == nil {
		return nil
	}
	name := u.DisplayName()
	return &name
}
