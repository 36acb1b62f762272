package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/labdesk/lab-issue-service/internal/api/dto"
	"github.com/labdesk/lab-issue-service/internal/auth"
	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/service"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

const loginPath = "/Account/Login"

// CookieSettings controls the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
}

// AccountHandler exposes registration, login and logout.
type AccountHandler struct {
	auth   *service.AuthService
	cookie CookieSettings
	logger *zap.Logger
}

// NewAccountHandler constructs handler.
func NewAccountHandler(authService *service.AuthService, cookie CookieSettings, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{auth: authService, cookie: cookie, logger: logger}
}

// LoginForm handles GET /Account/Login. Signed-in callers are pointed at their dashboard.
func (h *AccountHandler) LoginForm(c *fiber.Ctx) error {
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		return c.JSON(fiber.Map{"data": fiber.Map{
			"authenticated": true,
			"redirect":      principal.Role().DashboardPath(),
		}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"authenticated": false,
		"return_url":    c.Query("ReturnUrl"),
	}})
}

// Login handles POST /Account/Login.
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ReturnURL == "" {
		req.ReturnURL = c.Query("ReturnUrl")
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password, req.ReturnURL)
	if err != nil {
		return err
	}
	h.setSessionCookie(c, result.Session)
	return c.JSON(fiber.Map{"data": sessionResponse(result)})
}

// RegisterForm handles GET /Account/Register.
func (h *AccountHandler) RegisterForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{
		"roles": []domain.Role{domain.RoleStudent, domain.RoleNetworkTeam, domain.RoleFaculty},
	}})
}

// Register handles POST /Account/Register and signs the new account in.
func (h *AccountHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Email:           req.Email,
		FullName:        req.FullName,
		Role:            req.Role,
	})
	if err != nil {
		return err
	}
	h.setSessionCookie(c, result.Session)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": sessionResponse(result)})
}

// Logout handles GET /Account/Logout. The cookie is cleared even when the
// denylist write fails; the token then simply lives out its expiry.
func (h *AccountHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.Logout(c.UserContext(), principal.TokenID, principal.ExpiresAt); err != nil {
		h.logger.Warn("session revocation failed",
			zap.Int64("user_id", principal.UserID()),
			zap.String("token_id", principal.TokenID),
			zap.Error(err))
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"data": fiber.Map{"redirect": loginPath}})
}

func (h *AccountHandler) setSessionCookie(c *fiber.Ctx, session *domain.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func sessionResponse(result *service.LoginResult) dto.SessionResponse {
	return dto.SessionResponse{
		User: dto.UserResponse{
			ID:       result.User.ID,
			Username: result.User.Username,
			Email:    result.User.Email,
			FullName: result.User.FullName,
			Role:     result.User.Role,
		},
		Auth:     dto.AuthResponse{Token: result.Session.Token, ExpiresAt: result.Session.ExpiresAt},
		Redirect: result.Redirect,
	}
}
