package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/labdesk/lab-issue-service/internal/api/dto"
	"github.com/labdesk/lab-issue-service/internal/service"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

// NetworkTeamHandler serves the technician area.
type NetworkTeamHandler struct {
	tickets    *service.TicketService
	dashboards *service.DashboardService
}

// NewNetworkTeamHandler constructs handler.
func NewNetworkTeamHandler(tickets *service.TicketService, dashboards *service.DashboardService) *NetworkTeamHandler {
	return &NetworkTeamHandler{tickets: tickets, dashboards: dashboards}
}

// Dashboard GET /NetworkTeam/Dashboard.
func (h *NetworkTeamHandler) Dashboard(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	dashboard, err := h.dashboards.Build(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dashboardResponse(dashboard)})
}

// ManageIssues GET /NetworkTeam/ManageIssues.
func (h *NetworkTeamHandler) ManageIssues(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	query := parseTicketQuery(c, true)
	tickets, err := h.tickets.ListTickets(c.UserContext(), user, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketListResponse(tickets, query)})
}

// UpdateStatusForm GET /NetworkTeam/UpdateStatus/:id.
func (h *NetworkTeamHandler) UpdateStatusForm(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UpdateStatusForm{
		Ticket:          ticketResponse(ticket),
		AllowedStatuses: service.AllowedTransitions(ticket.Status),
	}})
}

// UpdateStatus POST /NetworkTeam/UpdateStatus/:id.
func (h *NetworkTeamHandler) UpdateStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.UpdateStatus(c.UserContext(), id, user.ID, req.Status, req.ResolutionNotes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":     plainTicketResponse(ticket),
		"message":  "Ticket status updated successfully",
		"redirect": "/NetworkTeam/ManageIssues",
	})
}

// AssignToMe GET /NetworkTeam/AssignToMe/:id.
func (h *NetworkTeamHandler) AssignToMe(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.AssignToSelf(c.UserContext(), id, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":     plainTicketResponse(ticket),
		"message":  "Ticket assigned to you",
		"redirect": "/NetworkTeam/ManageIssues",
	})
}

// TicketDetails GET /NetworkTeam/TicketDetails/:id.
func (h *NetworkTeamHandler) TicketDetails(c *fiber.Ctx) error {
	return staffTicketDetails(c, h.tickets)
}

func staffTicketDetails(c *fiber.Ctx, tickets *service.TicketService) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := tickets.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	history, err := tickets.ListHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetailResponse(ticket, history)})
}
