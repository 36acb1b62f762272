package http

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labdesk/lab-issue-service/internal/api/http/handlers"
	"github.com/labdesk/lab-issue-service/internal/auth"
	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/observability"
	"github.com/labdesk/lab-issue-service/internal/repository"
	"github.com/labdesk/lab-issue-service/internal/service"
)

var routeNow = time.Date(2024, 5, 6, 14, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

var (
	studentUser = &domain.User{ID: 1, Username: "student1", Role: domain.RoleStudent, Email: "student1@lab.edu", FullName: strPtr("John Student"), IsActive: true}
	networkUser = &domain.User{ID: 2, Username: "network1", Role: domain.RoleNetworkTeam, Email: "network1@lab.edu", FullName: strPtr("Mike Network"), IsActive: true}
	facultyUser = &domain.User{ID: 3, Username: "faculty1", Role: domain.RoleFaculty, Email: "faculty1@lab.edu", FullName: strPtr("Dr. Sarah Faculty"), IsActive: true}
)

type routeFixture struct {
	app       *fiber.App
	tickets   *service.MockTicketRepository
	users     *service.MockUserRepository
	computers *service.MockComputerRepository
	history   *service.MockTicketHistoryRepository
	roster    *service.MockRosterRepository
	sessions  *service.MockSessionStore
	tokens    *auth.TokenManager
	hasher    *auth.PasswordHasher
}

func newRouteFixture(t *testing.T) *routeFixture {
	t.Helper()
	f := &routeFixture{
		tickets:   new(service.MockTicketRepository),
		users:     new(service.MockUserRepository),
		computers: new(service.MockComputerRepository),
		history:   new(service.MockTicketHistoryRepository),
		roster:    new(service.MockRosterRepository),
		sessions:  new(service.MockSessionStore),
		tokens:    auth.NewTokenManager("route-secret", time.Hour),
		hasher:    auth.NewPasswordHasher(4),
	}
	for _, u := range []*domain.User{studentUser, networkUser, facultyUser} {
		f.users.On("GetByID", mock.Anything, u.ID).Return(u, nil).Maybe()
	}
	f.sessions.On("IsRevoked", mock.Anything, mock.Anything).Return(false, nil).Maybe()

	clock := func() time.Time { return routeNow }
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   f.tickets,
		UserRepo:     f.users,
		ComputerRepo: f.computers,
		HistoryRepo:  f.history,
		Clock:        clock,
	})
	dashboards := service.NewDashboardService(f.tickets, f.roster)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo: f.users,
		Tokens:   f.tokens,
		Hasher:   f.hasher,
		Sessions: f.sessions,
		Clock:    clock,
	})

	f.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(f.app, logger, metrics, 5*time.Second)
	RegisterRoutes(f.app, RouteConfig{
		Health:         handlers.NewHealthHandler("lab-issue-service", "test", nil),
		Account:        handlers.NewAccountHandler(authService, handlers.CookieSettings{Name: "LabIssueAuth"}, logger),
		Student:        handlers.NewStudentHandler(tickets, dashboards),
		NetworkTeam:    handlers.NewNetworkTeamHandler(tickets, dashboards),
		Faculty:        handlers.NewFacultyHandler(tickets, dashboards),
		AuthMiddleware: auth.NewAuthMiddleware(f.tokens, f.users, f.sessions, "LabIssueAuth", logger),
		Metrics:        metrics,
	})
	return f
}

func (f *routeFixture) do(t *testing.T, method, path string, as *domain.User, body string) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		session, err := f.tokens.GenerateToken(as)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func storedTicket(id, reporter int64, status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{
		ID:         id,
		ReportedBy: reporter,
		IPAddress:  "192.168.1.101",
		Title:      "Cannot connect to network",
		Status:     status,
		Priority:   domain.TicketPriorityHigh,
		ReportedAt: routeNow.Add(-2 * time.Hour),
		LabName:    strPtr("Lab A"),
	}
}

func TestRoutes_RoleGates(t *testing.T) {
	f := newRouteFixture(t)

	resp, body := f.do(t, fiber.MethodGet, "/Student/Dashboard", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	resp, body = f.do(t, fiber.MethodGet, "/NetworkTeam/ManageIssues", studentUser, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	resp, _ = f.do(t, fiber.MethodGet, "/Faculty/Reports", networkUser, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRoutes_UnknownRouteUsesErrorEnvelope(t *testing.T) {
	f := newRouteFixture(t)

	resp, body := f.do(t, fiber.MethodGet, "/Nowhere", nil, "")

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	f := newRouteFixture(t)

	resp, body := f.do(t, fiber.MethodGet, "/health/live", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])

	resp, body = f.do(t, fiber.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])

	resp, _ = f.do(t, fiber.MethodGet, "/metrics", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRoutes_StudentReportIssue(t *testing.T) {
	t.Run("creates an open ticket", func(t *testing.T) {
		f := newRouteFixture(t)
		f.tickets.On("Create", mock.Anything, mock.MatchedBy(func(tk *domain.Ticket) bool {
			return tk.ReportedBy == 1 && tk.Status == domain.TicketStatusOpen && tk.Priority == domain.TicketPriorityMedium
		})).Run(func(args mock.Arguments) { args.Get(1).(*domain.Ticket).ID = 9 }).Return(nil).Once()

		resp, body := f.do(t, fiber.MethodPost, "/Student/ReportIssue", studentUser,
			`{"ip_address":"192.168.1.120","issue_title":"Monitor flickers","issue_description":"Screen flickers","lab_name":"Lab B"}`)

		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		data := body["data"].(map[string]any)
		assert.Equal(t, float64(9), data["ticket_id"])
		assert.Equal(t, "Open", data["status"])
		assert.Equal(t, "/Student/ViewStatus", body["redirect"])
		f.tickets.AssertExpectations(t)
	})

	t.Run("rejects a malformed address", func(t *testing.T) {
		f := newRouteFixture(t)

		resp, body := f.do(t, fiber.MethodPost, "/Student/ReportIssue", studentUser,
			`{"ip_address":"999.1.1.1","issue_title":"t","issue_description":"d"}`)

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
		details := body["error"].(map[string]any)["details"].(map[string]any)
		assert.Contains(t, details, "ip_address")
		f.tickets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestRoutes_StudentReportIssueFormUsesForwardedAddress(t *testing.T) {
	f := newRouteFixture(t)
	session, err := f.tokens.GenerateToken(studentUser)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/Student/ReportIssue", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("X-Forwarded-For", "192.168.1.105, 10.0.0.1")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	var body struct {
		Data struct {
			IPAddress string `json:"ip_address"`
			Priority  string `json:"priority"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "192.168.1.105", body.Data.IPAddress)
	assert.Equal(t, "Medium", body.Data.Priority)
}

func TestRoutes_StudentTicketDetailsHidesOthers(t *testing.T) {
	f := newRouteFixture(t)
	other := domain.TicketDetail{Ticket: *storedTicket(4, 99, domain.TicketStatusOpen)}
	f.tickets.On("GetDetail", mock.Anything, int64(4)).Return(&other, nil).Once()

	resp, body := f.do(t, fiber.MethodGet, "/Student/TicketDetails/4", studentUser, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	resp, _ = f.do(t, fiber.MethodGet, "/Student/TicketDetails/abc", studentUser, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRoutes_StudentViewStatusScopesToCaller(t *testing.T) {
	f := newRouteFixture(t)
	own := domain.TicketDetail{Ticket: *storedTicket(1, 1, domain.TicketStatusOpen), Reporter: studentUser}
	f.tickets.On("ListDetails", mock.Anything, mock.MatchedBy(func(s repository.TicketScope) bool {
		return s.ReporterID != nil && *s.ReporterID == 1
	})).Return([]domain.TicketDetail{own}, nil).Once()

	resp, body := f.do(t, fiber.MethodGet, "/Student/ViewStatus?statusFilter=Open&searchString=connect", studentUser, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	tickets := data["tickets"].([]any)
	require.Len(t, tickets, 1)
	assert.Equal(t, "John Student", tickets[0].(map[string]any)["reported_by_name"])
	assert.Equal(t, "Open", data["filters"].(map[string]any)["status_filter"])
}

func TestRoutes_NetworkTeamUpdateStatus(t *testing.T) {
	t.Run("resolve without notes", func(t *testing.T) {
		f := newRouteFixture(t)
		f.tickets.On("GetByID", mock.Anything, int64(1)).Return(storedTicket(1, 1, domain.TicketStatusInProgress), nil).Once()

		resp, body := f.do(t, fiber.MethodPost, "/NetworkTeam/UpdateStatus/1", networkUser, `{"status":"Resolved"}`)

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
		f.tickets.AssertNotCalled(t, "UpdateWithHistory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("un-resolve rejected", func(t *testing.T) {
		f := newRouteFixture(t)
		resolved := storedTicket(1, 1, domain.TicketStatusResolved)
		at := routeNow.Add(-time.Hour)
		resolved.ResolvedAt = &at
		f.tickets.On("GetByID", mock.Anything, int64(1)).Return(resolved, nil).Once()

		resp, body := f.do(t, fiber.MethodPost, "/NetworkTeam/UpdateStatus/1", networkUser, `{"status":"Open"}`)

		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, "INVALID_TRANSITION", errorCode(body))
	})

	t.Run("resolves with notes", func(t *testing.T) {
		f := newRouteFixture(t)
		f.tickets.On("GetByID", mock.Anything, int64(1)).Return(storedTicket(1, 1, domain.TicketStatusInProgress), nil).Once()
		f.tickets.On("UpdateWithHistory", mock.Anything, mock.AnythingOfType("*domain.Ticket"), mock.AnythingOfType("[]*domain.TicketHistory")).Return(nil).Once()

		resp, body := f.do(t, fiber.MethodPost, "/NetworkTeam/UpdateStatus/1", networkUser,
			`{"status":"Resolved","resolution_notes":"Replaced cable"}`)

		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		data := body["data"].(map[string]any)
		assert.Equal(t, "Resolved", data["status"])
		assert.Equal(t, "Replaced cable", data["resolution_notes"])
		assert.NotNil(t, data["resolved_date"])
	})

	t.Run("stale write against a resolved row", func(t *testing.T) {
		f := newRouteFixture(t)
		f.tickets.On("GetByID", mock.Anything, int64(1)).Return(storedTicket(1, 1, domain.TicketStatusOpen), nil).Once()
		f.tickets.On("UpdateWithHistory", mock.Anything, mock.AnythingOfType("*domain.Ticket"), mock.Anything).
			Return(repository.ErrTicketResolved).Once()

		resp, body := f.do(t, fiber.MethodPost, "/NetworkTeam/UpdateStatus/1", networkUser, `{"status":"InProgress"}`)

		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, "INVALID_TRANSITION", errorCode(body))
	})

	t.Run("missing ticket", func(t *testing.T) {
		f := newRouteFixture(t)
		f.tickets.On("GetByID", mock.Anything, int64(42)).Return(nil, pgx.ErrNoRows).Once()

		resp, _ := f.do(t, fiber.MethodPost, "/NetworkTeam/UpdateStatus/42", networkUser, `{"status":"Open"}`)

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestRoutes_NetworkTeamAssignToMe(t *testing.T) {
	f := newRouteFixture(t)
	f.tickets.On("GetByID", mock.Anything, int64(3)).Return(storedTicket(3, 1, domain.TicketStatusOpen), nil).Once()
	f.tickets.On("UpdateWithHistory", mock.Anything, mock.MatchedBy(func(tk *domain.Ticket) bool {
		return tk.AssignedTo != nil && *tk.AssignedTo == 2 && tk.Status == domain.TicketStatusInProgress
	}), mock.MatchedBy(func(entries []*domain.TicketHistory) bool { return len(entries) == 2 })).Return(nil).Once()

	resp, body := f.do(t, fiber.MethodGet, "/NetworkTeam/AssignToMe/3", networkUser, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "InProgress", body["data"].(map[string]any)["status"])
	f.tickets.AssertExpectations(t)
}

func TestRoutes_NetworkTeamUpdateStatusForm(t *testing.T) {
	f := newRouteFixture(t)
	resolved := domain.TicketDetail{Ticket: *storedTicket(5, 1, domain.TicketStatusResolved)}
	f.tickets.On("GetDetail", mock.Anything, int64(5)).Return(&resolved, nil).Once()

	resp, body := f.do(t, fiber.MethodGet, "/NetworkTeam/UpdateStatus/5", networkUser, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	allowed := body["data"].(map[string]any)["allowed_statuses"].([]any)
	assert.Equal(t, []any{"Resolved"}, allowed)
}

func TestRoutes_FacultyReports(t *testing.T) {
	f := newRouteFixture(t)
	resolved := domain.TicketDetail{Ticket: *storedTicket(1, 1, domain.TicketStatusResolved)}
	resolvedAt := resolved.ReportedAt.Add(90 * time.Minute)
	resolved.ResolvedAt = &resolvedAt
	open := domain.TicketDetail{Ticket: *storedTicket(2, 1, domain.TicketStatusOpen)}
	open.LabName = nil
	f.tickets.On("ListDetails", mock.Anything, repository.TicketScope{}).Return([]domain.TicketDetail{resolved, open}, nil).Once()

	resp, body := f.do(t, fiber.MethodGet, "/Faculty/Reports", facultyUser, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, 1.5, data["average_resolution_hours"])
	byLab := data["by_lab"].([]any)
	require.Len(t, byLab, 2)
	assert.Equal(t, "Unknown", byLab[1].(map[string]any)["key"])
}

func TestRoutes_FacultyDashboard(t *testing.T) {
	f := newRouteFixture(t)
	f.tickets.On("ListDetails", mock.Anything, repository.TicketScope{}).Return([]domain.TicketDetail{}, nil).Once()
	f.roster.On("ListByRole", mock.Anything, domain.RoleNetworkTeam).Return([]domain.User{*networkUser}, nil).Once()
	f.roster.On("CountByRole", mock.Anything, domain.RoleStudent).Return(2, nil).Once()

	resp, body := f.do(t, fiber.MethodGet, "/Faculty/Dashboard", facultyUser, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["total_students"])
	assert.Equal(t, float64(1), data["total_network_team"])
	assert.Equal(t, float64(0), data["average_resolution_hours"])
}

func TestRoutes_DashboardStoreFailureIsInternal(t *testing.T) {
	f := newRouteFixture(t)
	f.tickets.On("ListDetails", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

	resp, body := f.do(t, fiber.MethodGet, "/NetworkTeam/Dashboard", networkUser, "")

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(body))
	assert.Equal(t, "internal server error", body["error"].(map[string]any)["message"])
}

func TestRoutes_AccountLoginAndLogout(t *testing.T) {
	f := newRouteFixture(t)
	hash, err := f.hasher.Hash("student123")
	require.NoError(t, err)
	withHash := *studentUser
	withHash.PasswordHash = hash
	f.users.On("GetByUsername", mock.Anything, "student1").Return(&withHash, nil).Once()

	resp, body := f.do(t, fiber.MethodPost, "/Account/Login", nil, `{"username":"student1","password":"student123"}`)

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "/Student/Dashboard", data["redirect"])
	var cookie *nethttp.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "LabIssueAuth" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	f.sessions.On("Revoke", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	req := httptest.NewRequest(fiber.MethodGet, "/Account/Logout", nil)
	req.AddCookie(&nethttp.Cookie{Name: "LabIssueAuth", Value: cookie.Value})
	resp, err = f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	f.sessions.AssertCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
}

func TestRoutes_AccountLoginFailure(t *testing.T) {
	f := newRouteFixture(t)
	f.users.On("GetByUsername", mock.Anything, "ghost").Return(nil, pgx.ErrNoRows).Once()

	resp, body := f.do(t, fiber.MethodPost, "/Account/Login", nil, `{"username":"ghost","password":"whatever"}`)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid username or password", body["error"].(map[string]any)["message"])
}

func TestRoutes_AccountLoginFormRedirectsSignedInUsers(t *testing.T) {
	f := newRouteFixture(t)

	resp, body := f.do(t, fiber.MethodGet, "/Account/Login", facultyUser, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "/Faculty/Dashboard", body["data"].(map[string]any)["redirect"])
}
