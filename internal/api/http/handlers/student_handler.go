package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/labdesk/lab-issue-service/internal/api/dto"
	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/service"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

// StudentHandler serves the student area.
type StudentHandler struct {
	tickets    *service.TicketService
	dashboards *service.DashboardService
}

// NewStudentHandler constructs handler.
func NewStudentHandler(tickets *service.TicketService, dashboards *service.DashboardService) *StudentHandler {
	return &StudentHandler{tickets: tickets, dashboards: dashboards}
}

// Dashboard GET /Student/Dashboard.
func (h *StudentHandler) Dashboard(c *fiber.Ctx) error {
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

// ReportIssueForm GET /Student/ReportIssue pre-fills the caller's address.
func (h *StudentHandler) ReportIssueForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.ReportIssueForm{
		IPAddress:  ClientIP(c),
		Priority:   domain.TicketPriorityMedium,
		Priorities: []domain.TicketPriority{domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh},
	}})
}

// ReportIssue POST /Student/ReportIssue.
func (h *StudentHandler) ReportIssue(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ReportIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.ReportIssue(c.UserContext(), user.ID, service.ReportIssueInput{
		IPAddress:    req.IPAddress,
		Title:        req.IssueTitle,
		Description:  req.IssueDescription,
		LabName:      req.LabName,
		ComputerName: req.ComputerName,
		Priority:     req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data":     plainTicketResponse(ticket),
		"message":  "Issue reported successfully",
		"redirect": "/Student/ViewStatus",
	})
}

// ViewStatus GET /Student/ViewStatus lists the caller's own tickets.
func (h *StudentHandler) ViewStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	query := parseTicketQuery(c, false)
	tickets, err := h.tickets.ListTickets(c.UserContext(), user, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketListResponse(tickets, query)})
}

// TicketDetails GET /Student/TicketDetails/:id. Other students' tickets read as missing.
func (h *StudentHandler) TicketDetails(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicketForStudent(c.UserContext(), user.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}
