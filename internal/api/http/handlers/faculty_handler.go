package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/labdesk/lab-issue-service/internal/service"
)

// FacultyHandler serves the read-only analytics area.
type FacultyHandler struct {
	tickets    *service.TicketService
	dashboards *service.DashboardService
}

// NewFacultyHandler constructs handler.
func NewFacultyHandler(tickets *service.TicketService, dashboards *service.DashboardService) *FacultyHandler {
	return &FacultyHandler{tickets: tickets, dashboards: dashboards}
}

// Dashboard GET /Faculty/Dashboard.
func (h *FacultyHandler) Dashboard(c *fiber.Ctx) error {
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

// MonitorIssues GET /Faculty/MonitorIssues.
func (h *FacultyHandler) MonitorIssues(c *fiber.Ctx) error {
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

// Reports GET /Faculty/Reports.
func (h *FacultyHandler) Reports(c *fiber.Ctx) error {
	reports, err := h.dashboards.Reports(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportsResponse(reports)})
}

// TicketDetails GET /Faculty/TicketDetails/:id.
func (h *FacultyHandler) TicketDetails(c *fiber.Ctx) error {
	return staffTicketDetails(c, h.tickets)
}
