package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/labdesk/lab-issue-service/internal/api/http/handlers"
	"github.com/labdesk/lab-issue-service/internal/auth"
	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Account        *handlers.AccountHandler
	Student        *handlers.StudentHandler
	NetworkTeam    *handlers.NetworkTeamHandler
	Faculty        *handlers.FacultyHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	account := app.Group("/Account")
	account.Get("/Login", cfg.AuthMiddleware.Optional, cfg.Account.LoginForm)
	account.Post("/Login", cfg.Account.Login)
	account.Get("/Register", cfg.Account.RegisterForm)
	account.Post("/Register", cfg.Account.Register)
	account.Get("/Logout", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Account.Logout)

	student := app.Group("/Student", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleStudent))
	student.Get("/Dashboard", cfg.Student.Dashboard)
	student.Get("/ReportIssue", cfg.Student.ReportIssueForm)
	student.Post("/ReportIssue", cfg.Student.ReportIssue)
	student.Get("/ViewStatus", cfg.Student.ViewStatus)
	student.Get("/TicketDetails/:id", cfg.Student.TicketDetails)

	network := app.Group("/NetworkTeam", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleNetworkTeam))
	network.Get("/Dashboard", cfg.NetworkTeam.Dashboard)
	network.Get("/ManageIssues", cfg.NetworkTeam.ManageIssues)
	network.Get("/UpdateStatus/:id", cfg.NetworkTeam.UpdateStatusForm)
	network.Post("/UpdateStatus/:id", cfg.NetworkTeam.UpdateStatus)
	network.Get("/AssignToMe/:id", cfg.NetworkTeam.AssignToMe)
	network.Get("/TicketDetails/:id", cfg.NetworkTeam.TicketDetails)

	faculty := app.Group("/Faculty", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleFaculty))
	faculty.Get("/Dashboard", cfg.Faculty.Dashboard)
	faculty.Get("/MonitorIssues", cfg.Faculty.MonitorIssues)
	faculty.Get("/Reports", cfg.Faculty.Reports)
	faculty.Get("/TicketDetails/:id", cfg.Faculty.TicketDetails)
}
